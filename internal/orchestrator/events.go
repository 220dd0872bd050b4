package orchestrator

import "github.com/novahq/nova/internal/models"

// Event is one state change published to the UI / TTS collaborators. Events
// are emitted from the orchestration loop in order.
type Event interface{ uiEvent() }

// TranscriptEvent carries a snapshot of the ordered message list.
type TranscriptEvent struct{ Messages []models.Message }

// StreamingEvent reports whether a turn is in flight.
type StreamingEvent struct{ Active bool }

// ListeningEvent reports the voice-capture indicator state.
type ListeningEvent struct{ Active bool }

// PartialTranscriptEvent carries the in-flight partial voice transcript.
type PartialTranscriptEvent struct{ Text string }

// InputEvent asks the UI to place a final transcript into the typed-input
// field for manual review.
type InputEvent struct{ Text string }

// RecognizedAppEvent carries the latest recognized foreign app snapshot.
type RecognizedAppEvent struct{ App *models.RecognizedApp }

// PendingContextEvent reports presence and size of the pending context.
type PendingContextEvent struct {
	Present bool
	Chars   int
}

// PendingImageEvent reports presence of a pending screenshot.
type PendingImageEvent struct{ Present bool }

// ErrorEvent carries a user-visible advisory or failure message.
type ErrorEvent struct{ Text string }

// SpeakingEvent reports whether the TTS collaborator is playing.
type SpeakingEvent struct{ Active bool }

func (TranscriptEvent) uiEvent()        {}
func (StreamingEvent) uiEvent()         {}
func (ListeningEvent) uiEvent()         {}
func (PartialTranscriptEvent) uiEvent() {}
func (InputEvent) uiEvent()             {}
func (RecognizedAppEvent) uiEvent()     {}
func (PendingContextEvent) uiEvent()    {}
func (PendingImageEvent) uiEvent()      {}
func (ErrorEvent) uiEvent()             {}
func (SpeakingEvent) uiEvent()          {}
