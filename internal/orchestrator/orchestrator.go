// Package orchestrator owns the conversation turn state machine. A single
// goroutine loop holds all mutable session state; capture events, voice
// events, and backend completions are marshaled into that loop, which is the
// sole synchronization discipline.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/novahq/nova/internal/extract"
	"github.com/novahq/nova/internal/models"
	"github.com/novahq/nova/internal/voice"
	"github.com/novahq/nova/internal/watch"
)

// Backend submits turns to the chat backend.
type Backend interface {
	SendTurn(ctx context.Context, req models.TurnRequest) (string, error)
	StreamTurn(ctx context.Context, req models.TurnRequest, onDelta func(string)) (string, error)
}

// ContextSource is the context watcher capability.
type ContextSource interface {
	Start() error
	Stop()
	Events() <-chan watch.Event
	CaptureSelection() string
	CaptureSelectionFromLastApp() string
}

// VoiceSource is the voice capture capability.
type VoiceSource interface {
	Start(ctx context.Context) error
	Stop()
	Events() <-chan voice.Event
}

// Snipper captures a user-selected screen region on demand.
type Snipper interface {
	Snip(ctx context.Context) ([]byte, error)
}

// voicePolicy decides what happens to a final transcript.
type voicePolicy struct {
	commit     bool
	autoSubmit bool
}

// Orchestrator composes capture events, voice events, and backend replies
// into a single ordered message list.
type Orchestrator struct {
	backend Backend
	watcher ContextSource
	session VoiceSource
	speaker voice.Synthesizer
	snipper Snipper
	log     *zap.Logger

	useStream bool

	cmds   chan func()
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	// final holds the transcript captured during Close; it is written on the
	// run loop before the loop exits and read only after done is closed.
	final []models.Message

	// State below is owned by the run loop; nothing else touches it.
	messages       []models.Message
	streaming      bool
	listening      bool
	muted          bool
	autoCapture    bool
	pendingContext string
	pendingImage   []byte
	pendingMIME    string
	recognizedApp  *models.RecognizedApp
	policy         voicePolicy
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithStreamingTransport makes turns use the incremental streaming call
// instead of the single-shot one.
func WithStreamingTransport(enabled bool) Option {
	return func(o *Orchestrator) {
		o.useStream = enabled
	}
}

// WithMuted sets the initial mute state for spoken replies.
func WithMuted(muted bool) Option {
	return func(o *Orchestrator) {
		o.muted = muted
	}
}

// WithLogger sets the orchestrator's logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithSnipper enables on-demand screen-region capture.
func WithSnipper(s Snipper) Option {
	return func(o *Orchestrator) {
		o.snipper = s
	}
}

// New creates the orchestrator and starts its run loop. speaker may be nil
// to disable spoken replies entirely.
func New(backend Backend, watcher ContextSource, session VoiceSource, speaker voice.Synthesizer, opts ...Option) *Orchestrator {
	if speaker == nil {
		speaker = voice.NopSynthesizer{}
	}
	o := &Orchestrator{
		backend: backend,
		watcher: watcher,
		session: session,
		speaker: speaker,
		log:     zap.NewNop(),
		cmds:    make(chan func(), 32),
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		policy:  voicePolicy{commit: true},
	}
	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	go o.run(ctx)
	return o
}

// Events returns the orchestrator's output event channel.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Close stops the run loop and the capture collaborators. The transcript at
// the moment of closing stays readable through Messages.
func (o *Orchestrator) Close() {
	o.once.Do(func() {
		o.call(func() { o.final = o.transcriptSnapshot() })
		o.watcher.Stop()
		o.session.Stop()
		o.speaker.Stop()
		o.cancel()
		<-o.done
	})
}

// run is the single-threaded orchestration context.
func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-o.cmds:
			fn()
		case ev := <-o.watcher.Events():
			o.handleWatch(ev)
		case ev := <-o.session.Events():
			o.handleVoice(ev)
		}
	}
}

// post marshals fn into the orchestration loop.
func (o *Orchestrator) post(fn func()) {
	select {
	case o.cmds <- fn:
	case <-o.done:
	}
}

// call runs fn on the loop and waits for it to finish.
func (o *Orchestrator) call(fn func()) {
	ready := make(chan struct{})
	o.post(func() {
		fn()
		close(ready)
	})
	select {
	case <-ready:
	case <-o.done:
	}
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
		o.log.Warn("orchestrator: dropping event, consumer is behind")
	}
}

// Messages returns a snapshot of the conversation transcript. After Close it
// returns the transcript as it stood when the orchestrator shut down.
func (o *Orchestrator) Messages() []models.Message {
	var snapshot []models.Message
	o.call(func() {
		snapshot = o.transcriptSnapshot()
	})
	if snapshot == nil {
		select {
		case <-o.done:
			snapshot = make([]models.Message, len(o.final))
			copy(snapshot, o.final)
		default:
		}
	}
	return snapshot
}

func (o *Orchestrator) transcriptSnapshot() []models.Message {
	out := make([]models.Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// Streaming reports whether a turn is currently in flight.
func (o *Orchestrator) Streaming() bool {
	var s bool
	o.call(func() { s = o.streaming })
	return s
}

// PendingContext returns the current pending context text.
func (o *Orchestrator) PendingContext() string {
	var ctx string
	o.call(func() { ctx = o.pendingContext })
	return ctx
}

// Submit sends one user turn. Empty input is a no-op; a submit while a turn
// is streaming is refused, not queued.
func (o *Orchestrator) Submit(text string) {
	o.call(func() { o.submit(text) })
}

func (o *Orchestrator) submit(text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}
	if o.streaming {
		o.emit(ErrorEvent{Text: "wait for the current reply to finish"})
		return
	}

	o.messages = append(o.messages, models.NewMessage(models.RoleUser, trimmed))
	placeholder := models.NewMessage(models.RoleAssistant, "")
	o.messages = append(o.messages, placeholder)
	o.emit(TranscriptEvent{Messages: o.transcriptSnapshot()})

	o.streaming = true
	o.emit(StreamingEvent{Active: true})

	// Snapshot and clear pending context/screenshot before the network call;
	// anything captured afterwards belongs to the next turn.
	req := models.TurnRequest{
		Text:          trimmed,
		HiddenContext: o.pendingContext,
		Image:         o.pendingImage,
		ImageMIME:     o.pendingMIME,
	}
	o.pendingContext = ""
	o.pendingImage = nil
	o.pendingMIME = ""
	o.emit(PendingContextEvent{})
	o.emit(PendingImageEvent{})

	go o.sendTurn(placeholder.ID, req)
}

// sendTurn performs the backend call off the loop and re-enters it with the
// outcome. The streaming flag always resolves back to false.
func (o *Orchestrator) sendTurn(placeholderID string, req models.TurnRequest) {
	ctx := context.Background()

	var (
		final string
		err   error
	)
	if o.useStream {
		final, err = o.backend.StreamTurn(ctx, req, func(delta string) {
			o.post(func() { o.updatePlaceholder(placeholderID, delta) })
		})
	} else {
		final, err = o.backend.SendTurn(ctx, req)
	}

	o.post(func() { o.finishTurn(placeholderID, final, err) })
}

func (o *Orchestrator) updatePlaceholder(id, text string) {
	for i := len(o.messages) - 1; i >= 0; i-- {
		if o.messages[i].ID == id {
			o.messages[i].Text = text
			o.emit(TranscriptEvent{Messages: o.transcriptSnapshot()})
			return
		}
	}
}

func (o *Orchestrator) finishTurn(placeholderID, final string, err error) {
	o.streaming = false
	o.emit(StreamingEvent{Active: false})

	if err != nil {
		// Leave the placeholder as-is (empty or partially filled)
		o.log.Warn("orchestrator: turn failed", zap.Error(err))
		o.emit(ErrorEvent{Text: err.Error()})
		return
	}

	o.updatePlaceholder(placeholderID, final)
	if !o.muted && strings.TrimSpace(final) != "" {
		o.speaker.Speak(final)
		o.emit(SpeakingEvent{Active: true})
		go o.watchSpeech()
	}
}

// watchSpeech clears the speaking indicator once playback ends on its own;
// mute and StopSpeaking clear it eagerly.
func (o *Orchestrator) watchSpeech() {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-o.done:
			return
		case <-ticker.C:
			if !o.speaker.Speaking() {
				o.post(func() { o.emit(SpeakingEvent{}) })
				return
			}
		}
	}
}

// StartVoiceCapture begins a voice capture. The listening indicator is shown
// immediately and reset if authorization is denied or the start fails.
func (o *Orchestrator) StartVoiceCapture() {
	o.call(func() {
		if o.listening {
			return
		}
		o.listening = true
		o.emit(ListeningEvent{Active: true})

		go func() {
			if err := o.session.Start(context.Background()); err != nil {
				o.post(func() {
					o.listening = false
					o.emit(ListeningEvent{Active: false})
					o.emit(ErrorEvent{Text: err.Error()})
				})
			}
		}()
	})
}

// StopVoiceCapture ends an active capture. commit places the final
// transcript into the input field; autoSubmit sends it as a turn directly.
func (o *Orchestrator) StopVoiceCapture(commit, autoSubmit bool) {
	o.call(func() {
		o.policy = voicePolicy{commit: commit, autoSubmit: autoSubmit}
		o.session.Stop()
	})
}

func (o *Orchestrator) handleVoice(ev voice.Event) {
	switch ev := ev.(type) {
	case voice.PartialEvent:
		o.emit(PartialTranscriptEvent{Text: ev.Text})

	case voice.FinalEvent:
		text := strings.TrimSpace(ev.Text)
		o.emit(PartialTranscriptEvent{})
		switch {
		case text == "":
		case o.policy.autoSubmit:
			o.submit(text)
		case o.policy.commit:
			o.emit(InputEvent{Text: text})
		}
		o.policy = voicePolicy{commit: true}

	case voice.ErrorEvent:
		o.emit(ErrorEvent{Text: ev.Err.Error()})

	case voice.StateEvent:
		o.listening = ev.Running
		o.emit(ListeningEvent{Active: ev.Running})
		if !ev.Running {
			o.emit(PartialTranscriptEvent{})
		}
	}
}

// SetAutoCapture starts or stops the context watcher. A failed start is
// surfaced as an explicit, actionable error.
func (o *Orchestrator) SetAutoCapture(enabled bool) error {
	var err error
	o.call(func() {
		if enabled == o.autoCapture {
			return
		}
		if !enabled {
			o.watcher.Stop()
			o.autoCapture = false
			return
		}
		if startErr := o.watcher.Start(); startErr != nil {
			err = startErr
			o.emit(ErrorEvent{Text: startErr.Error()})
			return
		}
		o.autoCapture = true
	})
	return err
}

// AutoCapture reports whether continuous capture is enabled.
func (o *Orchestrator) AutoCapture() bool {
	var v bool
	o.call(func() { v = o.autoCapture })
	return v
}

func (o *Orchestrator) handleWatch(ev watch.Event) {
	switch ev := ev.(type) {
	case watch.CaptureEvent:
		o.setPendingContext(ev.Text)

	case watch.AppChangedEvent:
		o.recognizedApp = ev.App
		o.emit(RecognizedAppEvent{App: ev.App})

	case watch.ScreenshotEvent:
		// At most one pending screenshot; a new focus change replaces it
		o.pendingImage = ev.Image
		o.pendingMIME = "image/png"
		o.emit(PendingImageEvent{Present: true})
	}
}

// setPendingContext replaces the pending context wholesale: latest capture
// wins, clipped to the cap.
func (o *Orchestrator) setPendingContext(text string) {
	clipped := extract.Clip(text, models.MaxContextChars)
	if clipped == "" {
		return
	}
	o.pendingContext = clipped
	o.emit(PendingContextEvent{Present: true, Chars: len([]rune(clipped))})
}

// AttachSelection captures the current selection on demand and stores it as
// pending context. fromLastApp targets the last known non-self app instead
// of the frontmost one.
func (o *Orchestrator) AttachSelection(fromLastApp bool) {
	var text string
	if fromLastApp {
		text = o.watcher.CaptureSelectionFromLastApp()
	} else {
		text = o.watcher.CaptureSelection()
	}
	if text == "" {
		return
	}
	o.call(func() { o.setPendingContext(text) })
}

// CaptureSnip asks the snipper for a screen region and stores the result as
// the pending screenshot for the next turn, replacing any previous one. The
// snip tool runs off the loop; the user has until the timeout to pick a
// region.
func (o *Orchestrator) CaptureSnip() {
	o.call(func() {
		if o.snipper == nil {
			o.emit(ErrorEvent{Text: "no screen capture tool configured"})
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			img, err := o.snipper.Snip(ctx)
			o.post(func() {
				if err != nil {
					o.log.Warn("orchestrator: snip failed", zap.Error(err))
					o.emit(ErrorEvent{Text: err.Error()})
					return
				}
				o.pendingImage = img
				o.pendingMIME = "image/png"
				o.emit(PendingImageEvent{Present: true})
			})
		}()
	})
}

// ClearPendingContext discards the pending context without consuming it.
func (o *Orchestrator) ClearPendingContext() {
	o.call(func() {
		o.pendingContext = ""
		o.emit(PendingContextEvent{})
	})
}

// ToggleMute flips spoken-reply muting and returns the new state.
func (o *Orchestrator) ToggleMute() bool {
	var muted bool
	o.call(func() {
		o.muted = !o.muted
		muted = o.muted
		if o.muted {
			o.speaker.Stop()
			o.emit(SpeakingEvent{})
		}
	})
	return muted
}

// StopSpeaking cancels any active speech playback.
func (o *Orchestrator) StopSpeaking() {
	o.call(func() {
		o.speaker.Stop()
		o.emit(SpeakingEvent{})
	})
}

// RecognizedApp returns the last recognized foreign app snapshot.
func (o *Orchestrator) RecognizedApp() *models.RecognizedApp {
	var app *models.RecognizedApp
	o.call(func() { app = o.recognizedApp })
	return app
}
