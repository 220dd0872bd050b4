// Package voice manages the live transcription lifecycle over an abstract
// speech engine.
package voice

import (
	"context"
	"sync"

	"go.uber.org/zap"

	apierrors "github.com/novahq/nova/internal/errors"
)

// Event is one recognizer callback, delivered on the session channel.
type Event interface{ voiceEvent() }

// PartialEvent is a non-terminal transcription update.
type PartialEvent struct{ Text string }

// FinalEvent is the single terminal transcription result.
type FinalEvent struct{ Text string }

// ErrorEvent reports a recognizer failure.
type ErrorEvent struct{ Err error }

// StateEvent reports the listening indicator state.
type StateEvent struct{ Running bool }

func (PartialEvent) voiceEvent() {}
func (FinalEvent) voiceEvent()   {}
func (ErrorEvent) voiceEvent()   {}
func (StateEvent) voiceEvent()   {}

// Engine is the platform speech capability. Start opens the audio input and
// a recognition task; the returned channel emits zero or more partials and
// exactly one final or error before it is closed. Stop tears the task down
// and may cause the engine to emit a cancellation error first.
type Engine interface {
	Authorize(ctx context.Context) (bool, error)
	Start(ctx context.Context) (<-chan Event, error)
	Stop()
}

// DeviceSelector is implemented by engines that support picking a physical
// input device.
type DeviceSelector interface {
	SetDevice(uid string)
}

// LocaleSelector is implemented by engines that support per-language
// recognition models.
type LocaleSelector interface {
	SetLocale(locale string)
}

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateListening
	StateCancelling
)

// Session manages one start/stop transcription lifecycle. At most one
// capture may be active at a time; events are forwarded on a single-consumer
// channel and must be marshaled into the orchestration context by the
// consumer before touching shared state.
type Session struct {
	engine Engine
	log    *zap.Logger

	mu      sync.Mutex
	state   State
	partial string
	device  string
	locale  string

	events chan Event
}

// NewSession creates an idle session over the given engine.
func NewSession(engine Engine, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		engine: engine,
		log:    log,
		events: make(chan Event, 16),
	}
}

// Events returns the session's event channel. Never closed.
func (s *Session) Events() <-chan Event { return s.events }

// Listening reports whether a capture is active.
func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateListening
}

// Partial returns the in-flight partial transcript.
func (s *Session) Partial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partial
}

// SetDevice selects the physical input device fed to the engine. Changing it
// while listening requires a stop/start cycle.
func (s *Session) SetDevice(uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return apierrors.NewValidationError("cannot change input device while listening")
	}
	s.device = uid
	if sel, ok := s.engine.(DeviceSelector); ok {
		sel.SetDevice(uid)
	}
	return nil
}

// SetLocale selects the recognition language. Like the input device, it is a
// pre-start configuration; changing it while listening requires a stop/start
// cycle.
func (s *Session) SetLocale(locale string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return apierrors.NewValidationError("cannot change recognition locale while listening")
	}
	s.locale = locale
	if sel, ok := s.engine.(LocaleSelector); ok {
		sel.SetLocale(locale)
	}
	return nil
}

// Start requests authorization and opens a capture. No-op when already
// listening. A denial surfaces as a PermissionError without changing state.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	granted, err := s.engine.Authorize(ctx)
	if err != nil {
		return apierrors.NewRecognitionError("authorization check failed", err)
	}
	if !granted {
		return apierrors.NewPermissionError("microphone",
			"grant microphone and speech recognition access to use voice input")
	}

	engineEvents, err := s.engine.Start(ctx)
	if err != nil {
		return apierrors.NewRecognitionError("failed to start recognizer", err)
	}

	s.mu.Lock()
	s.state = StateListening
	s.partial = ""
	s.mu.Unlock()

	s.emit(StateEvent{Running: true})
	go s.forward(engineEvents)
	return nil
}

// Stop ends an active capture. Idempotent: stopping an idle session is a
// no-op. The cancelling state suppresses the recognizer's own cancellation
// error so it is not misreported as a failure.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.state = StateCancelling
	s.mu.Unlock()

	s.engine.Stop()
}

// forward relays engine events to the session channel, applying the
// cancellation-suppression and teardown rules.
func (s *Session) forward(engineEvents <-chan Event) {
	for ev := range engineEvents {
		switch ev := ev.(type) {
		case PartialEvent:
			s.mu.Lock()
			s.partial = ev.Text
			s.mu.Unlock()
			s.emit(ev)

		case FinalEvent:
			s.emit(ev)
			s.mu.Lock()
			cancelling := s.state == StateCancelling
			s.mu.Unlock()
			if !cancelling {
				s.engine.Stop()
			}

		case ErrorEvent:
			s.mu.Lock()
			cancelling := s.state == StateCancelling
			s.mu.Unlock()
			if cancelling {
				// Expected: engine cancellation triggered by user stop
				s.log.Debug("voice: suppressed cancellation error", zap.Error(ev.Err))
				continue
			}
			s.emit(ErrorEvent{Err: apierrors.NewRecognitionError("", ev.Err)})
			s.engine.Stop()
		}
	}

	s.mu.Lock()
	s.state = StateIdle
	s.partial = ""
	s.mu.Unlock()
	s.emit(StateEvent{Running: false})
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn("voice: dropping event, consumer is behind")
	}
}
