// Package platform provides portable implementations of the OS capability
// interfaces the core consumes. Real accessibility and speech backends are
// platform glue supplied by the host application; the implementations here
// cover what can be done with external tools alone.
package platform

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/novahq/nova/internal/voice"
)

// DefaultTTSCommand picks a synthesizer binary for the current OS.
func DefaultTTSCommand() string {
	if runtime.GOOS == "darwin" {
		return "say"
	}
	return "espeak"
}

// CommandSynthesizer speaks text by running an external TTS command, one
// process per utterance. Speak replaces any utterance in progress.
type CommandSynthesizer struct {
	command string
	log     *zap.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewCommandSynthesizer creates a synthesizer around the given command.
// Empty picks the OS default.
func NewCommandSynthesizer(command string, log *zap.Logger) *CommandSynthesizer {
	if command == "" {
		command = DefaultTTSCommand()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandSynthesizer{command: command, log: log}
}

// Speak stops any current utterance and speaks the supplied text.
func (s *CommandSynthesizer) Speak(text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		s.Stop()
		return
	}

	s.Stop()

	cmd := exec.Command(s.command, trimmed)
	if err := cmd.Start(); err != nil {
		s.log.Warn("platform: tts command failed to start",
			zap.String("command", s.command), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		s.mu.Lock()
		if s.cmd == cmd {
			s.cmd = nil
		}
		s.mu.Unlock()
	}()
}

// Stop cancels any active speech.
func (s *CommandSynthesizer) Stop() {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// Speaking reports whether an utterance is in progress.
func (s *CommandSynthesizer) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// NoopEngine is a speech engine for hosts without a recognition backend.
// Authorization is always denied, which surfaces a clear permission message
// instead of a broken capture.
type NoopEngine struct{}

func (NoopEngine) Authorize(context.Context) (bool, error)           { return false, nil }
func (NoopEngine) Start(context.Context) (<-chan voice.Event, error) { return nil, nil }
func (NoopEngine) Stop()                                             {}
