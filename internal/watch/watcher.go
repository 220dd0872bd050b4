// Package watch observes the frontmost foreign application and emits context
// capture events for the orchestrator.
package watch

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	apierrors "github.com/novahq/nova/internal/errors"
	"github.com/novahq/nova/internal/extract"
	"github.com/novahq/nova/internal/models"
)

// AppInfo identifies a running application.
type AppInfo struct {
	PID      int
	BundleID string
	Name     string
	Icon     []byte
}

// key returns a stable identity for change detection.
func (a AppInfo) key() string {
	if a.BundleID != "" {
		return a.BundleID
	}
	return strconv.Itoa(a.PID)
}

// Workspace is the platform capability the watcher polls.
type Workspace interface {
	// Trusted reports whether the accessibility permission is granted,
	// optionally prompting the user.
	Trusted(prompt bool) bool
	// FrontmostApp returns the currently active application, if any.
	FrontmostApp() (AppInfo, bool)
	// OwnBundleID identifies the assistant's own process.
	OwnBundleID() string
	// FocusedElement returns the focused element (or focused window root)
	// of the given process.
	FocusedElement(pid int) (extract.Element, bool)
	// FindApp resolves a running application by bundle id.
	FindApp(bundleID string) (AppInfo, bool)
}

// Screenshotter captures a best-effort image of a process's focused window.
// Failure is silent: absence of a screenshot is not an error.
type Screenshotter interface {
	CaptureApp(ctx context.Context, pid int) ([]byte, bool)
}

// Event is one observation emitted by the watcher.
type Event interface{ watchEvent() }

// CaptureEvent carries newly captured (and deduplicated) context text.
type CaptureEvent struct{ Text string }

// AppChangedEvent carries the latest recognized foreign app snapshot.
// App is nil when no application is frontmost at all.
type AppChangedEvent struct{ App *models.RecognizedApp }

// ScreenshotEvent carries a best-effort screenshot of a newly focused app.
type ScreenshotEvent struct{ Image []byte }

func (CaptureEvent) watchEvent()    {}
func (AppChangedEvent) watchEvent() {}
func (ScreenshotEvent) watchEvent() {}

// Watcher polls the frontmost foreign application on a fixed interval,
// deduplicates captured text by content hash, and emits change events.
type Watcher struct {
	ws       Workspace
	shooter  Screenshotter
	interval time.Duration
	log      *zap.Logger

	events chan Event

	mu           sync.Mutex
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	lastHash     uint64
	hasHash      bool
	lastFront    string
	hasFront     bool
	lastNonSelf  *AppInfo
	lastSnapshot *models.RecognizedApp
}

// Option configures the watcher.
type Option func(*Watcher)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the watcher's logger.
func WithLogger(log *zap.Logger) Option {
	return func(w *Watcher) {
		w.log = log
	}
}

// New creates a watcher over the given workspace. shooter may be nil when no
// screenshot capability is available.
func New(ws Workspace, shooter Screenshotter, opts ...Option) *Watcher {
	w := &Watcher{
		ws:       ws,
		shooter:  shooter,
		interval: models.DefaultPollInterval,
		log:      zap.NewNop(),
		events:   make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Events returns the watcher's event channel. It is never closed; consumers
// stop reading after Stop.
func (w *Watcher) Events() <-chan Event { return w.events }

// Start begins polling. It fails with a PermissionError when the
// accessibility permission has not been granted; the caller is responsible
// for surfacing a permission-request message.
func (w *Watcher) Start() error {
	if !w.ws.Trusted(true) {
		return apierrors.NewPermissionError("accessibility",
			"grant access in system privacy settings to enable auto-capture")
	}

	w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	w.mu.Lock()
	w.running = true
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go w.run(ctx, done)
	return nil
}

// Stop halts polling. Safe to call when not running.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the watcher is currently polling.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	w.observeFrontmost(ctx)

	text, ok := w.captureFrontmostText()
	if !ok || text == "" {
		return
	}

	h := fnv.New64a()
	h.Write([]byte(text))
	sum := h.Sum64()

	w.mu.Lock()
	unchanged := w.hasHash && sum == w.lastHash
	w.lastHash = sum
	w.hasHash = true
	w.mu.Unlock()

	if unchanged {
		return
	}
	w.emit(CaptureEvent{Text: text})
}

// observeFrontmost tracks process-identity changes and keeps reporting the
// last non-self foreign app when the assistant itself regains focus.
func (w *Watcher) observeFrontmost(ctx context.Context) {
	app, ok := w.ws.FrontmostApp()
	if !ok {
		w.mu.Lock()
		had := w.hasFront
		w.hasFront = false
		w.lastFront = ""
		w.mu.Unlock()
		if had {
			w.emit(AppChangedEvent{App: nil})
		}
		return
	}

	key := app.key()
	w.mu.Lock()
	if w.hasFront && key == w.lastFront {
		w.mu.Unlock()
		return
	}
	w.lastFront = key
	w.hasFront = true
	isSelf := app.BundleID != "" && app.BundleID == w.ws.OwnBundleID()
	var snapshot *models.RecognizedApp
	if isSelf {
		snapshot = w.lastSnapshot
	} else {
		snapshot = &models.RecognizedApp{Name: app.Name, Icon: app.Icon}
		appCopy := app
		w.lastNonSelf = &appCopy
		w.lastSnapshot = snapshot
	}
	w.mu.Unlock()

	if isSelf {
		// Keep showing the previous foreign app while the assistant is up front
		if snapshot != nil {
			w.emit(AppChangedEvent{App: snapshot})
		}
		return
	}

	w.emit(AppChangedEvent{App: snapshot})

	if w.shooter != nil {
		pid := app.PID
		go func() {
			if img, ok := w.shooter.CaptureApp(ctx, pid); ok && len(img) > 0 {
				w.emit(ScreenshotEvent{Image: img})
			}
		}()
	}
}

func (w *Watcher) captureFrontmostText() (string, bool) {
	app, ok := w.ws.FrontmostApp()
	if !ok {
		return "", false
	}
	if app.BundleID != "" && app.BundleID == w.ws.OwnBundleID() {
		// Never capture the assistant's own UI
		return "", false
	}
	el, ok := w.ws.FocusedElement(app.PID)
	if !ok {
		return "", false
	}
	return extract.Collect(el), true
}

// CaptureSelection synchronously reads the current selection from the
// frontmost app. Empty when nothing is selected, the field is secure, or the
// permission is missing.
func (w *Watcher) CaptureSelection() string {
	if !w.ws.Trusted(true) {
		return ""
	}
	app, ok := w.ws.FrontmostApp()
	if !ok {
		return ""
	}
	return w.captureSelection(app.PID)
}

// CaptureSelectionFromLastApp reads the selection from the last known
// non-self app, even while the assistant itself is frontmost.
func (w *Watcher) CaptureSelectionFromLastApp() string {
	if !w.ws.Trusted(true) {
		return ""
	}

	w.mu.Lock()
	last := w.lastNonSelf
	w.mu.Unlock()
	if last == nil {
		return ""
	}

	// Re-resolve by bundle id in case the process was relaunched
	pid := last.PID
	if last.BundleID != "" {
		if app, ok := w.ws.FindApp(last.BundleID); ok {
			pid = app.PID
		}
	}
	return w.captureSelection(pid)
}

func (w *Watcher) captureSelection(pid int) string {
	el, ok := w.ws.FocusedElement(pid)
	if !ok {
		return ""
	}
	return extract.SelectedTextOf(el)
}

// emit delivers an event without ever blocking the poll loop; a full channel
// drops the event.
func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.log.Warn("watch: dropping event, consumer is behind")
	}
}
