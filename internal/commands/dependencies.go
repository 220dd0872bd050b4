package commands

import (
	"go.uber.org/zap"

	"github.com/novahq/nova/internal/backend"
	"github.com/novahq/nova/internal/config"
	"github.com/novahq/nova/internal/orchestrator"
	"github.com/novahq/nova/internal/platform"
	"github.com/novahq/nova/internal/voice"
	"github.com/novahq/nova/internal/watch"
)

// buildLogger returns a dev logger under --verbose, a nop logger otherwise.
func buildLogger() *zap.Logger {
	if !verboseFlag {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// buildBackend creates the backend client from config.
func buildBackend(cfg config.Config, log *zap.Logger) *backend.Client {
	return backend.New(cfg.BackendURL, cfg.AppName, cfg.UserID,
		backend.WithLogger(log.Named("backend")))
}

// buildOrchestrator wires the orchestrator with the platform collaborators
// available on this host. Real accessibility and speech backends are
// injected by the host application; the defaults degrade gracefully with
// actionable permission errors.
func buildOrchestrator(cfg config.Config, log *zap.Logger) (*orchestrator.Orchestrator, *backend.Client) {
	client := buildBackend(cfg, log)

	watcher := watch.New(platform.NoopWorkspace{}, nil,
		watch.WithInterval(cfg.PollInterval()),
		watch.WithLogger(log.Named("watch")))

	session := voice.NewSession(platform.NoopEngine{}, log.Named("voice"))
	if cfg.InputDeviceUID != "" {
		_ = session.SetDevice(cfg.InputDeviceUID)
	}
	if cfg.VoiceLocale != "" {
		_ = session.SetLocale(cfg.VoiceLocale)
	}

	speaker := platform.NewCommandSynthesizer(cfg.TTSCommand, log.Named("tts"))

	opts := []orchestrator.Option{
		orchestrator.WithStreamingTransport(cfg.Streaming || streamFlag),
		orchestrator.WithMuted(cfg.Muted),
		orchestrator.WithLogger(log.Named("orchestrator")),
	}
	if cfg.SnipCommand != "" {
		opts = append(opts, orchestrator.WithSnipper(platform.NewCommandSnipper(cfg.SnipCommand)))
	}

	orch := orchestrator.New(client, watcher, session, speaker, opts...)
	return orch, client
}
