package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	apierrors "github.com/novahq/nova/internal/errors"
	"github.com/novahq/nova/internal/extract"
)

// fakeElement exposes a single value attribute.
type fakeElement struct {
	value    string
	selected string
	secure   bool
}

func (f *fakeElement) Secure() bool                           { return f.secure }
func (f *fakeElement) Value() (string, bool)                  { return f.value, f.value != "" }
func (f *fakeElement) Title() (string, bool)                  { return "", false }
func (f *fakeElement) SelectedText() (string, bool)           { return f.selected, f.selected != "" }
func (f *fakeElement) SelectedRange() (int, int, bool)        { return 0, 0, false }
func (f *fakeElement) TextForRange(int, int) (string, bool)   { return "", false }
func (f *fakeElement) CharCount() (int, bool)                 { return 0, false }
func (f *fakeElement) VisibleChildren() ([]extract.Element, bool) { return nil, false }
func (f *fakeElement) Children() ([]extract.Element, bool)    { return nil, false }

// fakeWorkspace is a scriptable Workspace whose frontmost app and focused
// element can be swapped mid-test.
type fakeWorkspace struct {
	mu       sync.Mutex
	trusted  bool
	front    AppInfo
	hasFront bool
	ownID    string
	focused  map[int]extract.Element
	apps     map[string]AppInfo
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{
		trusted: true,
		ownID:   "com.novahq.nova",
		focused: make(map[int]extract.Element),
		apps:    make(map[string]AppInfo),
	}
}

func (f *fakeWorkspace) Trusted(prompt bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trusted
}

func (f *fakeWorkspace) FrontmostApp() (AppInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.front, f.hasFront
}

func (f *fakeWorkspace) OwnBundleID() string { return f.ownID }

func (f *fakeWorkspace) FocusedElement(pid int) (extract.Element, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.focused[pid]
	return el, ok
}

func (f *fakeWorkspace) FindApp(bundleID string) (AppInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.apps[bundleID]
	return app, ok
}

func (f *fakeWorkspace) setFront(app AppInfo, el extract.Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.front = app
	f.hasFront = true
	if el != nil {
		f.focused[app.PID] = el
	}
	f.apps[app.BundleID] = app
}

// drain collects events emitted within the window.
func drain(w *Watcher, window time.Duration) []Event {
	var events []Event
	deadline := time.After(window)
	for {
		select {
		case ev := <-w.Events():
			events = append(events, ev)
		case <-deadline:
			return events
		}
	}
}

func captures(events []Event) []CaptureEvent {
	var out []CaptureEvent
	for _, ev := range events {
		if c, ok := ev.(CaptureEvent); ok {
			out = append(out, c)
		}
	}
	return out
}

// ============================================================================
// Start / Stop Tests
// ============================================================================

func TestWatcher_StartWithoutPermission(t *testing.T) {
	ws := newFakeWorkspace()
	ws.trusted = false

	w := New(ws, nil)
	err := w.Start()
	if err == nil {
		t.Fatal("Start() expected error when permission is missing")
	}
	if !apierrors.IsPermissionError(err) {
		t.Errorf("Start() error = %v, want PermissionError", err)
	}
	if w.Running() {
		t.Error("watcher should not be running after denied Start")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	ws := newFakeWorkspace()
	w := New(ws, nil, WithInterval(5*time.Millisecond))

	w.Stop() // never started

	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	w.Stop()
	w.Stop()

	if w.Running() {
		t.Error("watcher still running after Stop")
	}
}

// ============================================================================
// Capture Dedupe Tests
// ============================================================================

func TestWatcher_IdenticalContentEmitsOnce(t *testing.T) {
	ws := newFakeWorkspace()
	ws.setFront(AppInfo{PID: 100, BundleID: "com.example.editor", Name: "Editor"},
		&fakeElement{value: "stable text"})

	w := New(ws, nil, WithInterval(5*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	got := captures(drain(w, 80*time.Millisecond))
	if len(got) != 1 {
		t.Fatalf("got %d capture events over repeated ticks, want 1", len(got))
	}
	if got[0].Text != "stable text" {
		t.Errorf("capture = %q, want %q", got[0].Text, "stable text")
	}
}

func TestWatcher_ChangedContentEmitsAgain(t *testing.T) {
	ws := newFakeWorkspace()
	ws.setFront(AppInfo{PID: 100, BundleID: "com.example.editor", Name: "Editor"},
		&fakeElement{value: "first"})

	w := New(ws, nil, WithInterval(5*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	first := captures(drain(w, 40*time.Millisecond))
	if len(first) != 1 || first[0].Text != "first" {
		t.Fatalf("initial captures = %+v, want one %q", first, "first")
	}

	ws.mu.Lock()
	ws.focused[100] = &fakeElement{value: "second"}
	ws.mu.Unlock()

	second := captures(drain(w, 40*time.Millisecond))
	if len(second) != 1 || second[0].Text != "second" {
		t.Fatalf("captures after change = %+v, want one %q", second, "second")
	}
}

func TestWatcher_OwnAppNeverCaptured(t *testing.T) {
	ws := newFakeWorkspace()
	ws.setFront(AppInfo{PID: 1, BundleID: ws.ownID, Name: "Nova"},
		&fakeElement{value: "our own window"})

	w := New(ws, nil, WithInterval(5*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if got := captures(drain(w, 40*time.Millisecond)); len(got) != 0 {
		t.Errorf("got %d capture events from own app, want 0", len(got))
	}
}

// ============================================================================
// App Change Tests
// ============================================================================

func TestWatcher_SelfFocusKeepsLastForeignApp(t *testing.T) {
	ws := newFakeWorkspace()
	ws.setFront(AppInfo{PID: 100, BundleID: "com.example.editor", Name: "Editor"},
		&fakeElement{value: "text"})

	w := New(ws, nil, WithInterval(5*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	drain(w, 30*time.Millisecond)

	// The assistant itself comes frontmost
	ws.setFront(AppInfo{PID: 1, BundleID: ws.ownID, Name: "Nova"}, nil)

	var lastChange *AppChangedEvent
	for _, ev := range drain(w, 40*time.Millisecond) {
		if c, ok := ev.(AppChangedEvent); ok {
			lastChange = &c
		}
	}
	if lastChange == nil {
		t.Fatal("no AppChangedEvent after focus moved to self")
	}
	if lastChange.App == nil || lastChange.App.Name != "Editor" {
		t.Errorf("recognized app = %+v, want the previous foreign app", lastChange.App)
	}
}

// ============================================================================
// Selection Capture Tests
// ============================================================================

func TestWatcher_CaptureSelection(t *testing.T) {
	ws := newFakeWorkspace()
	ws.setFront(AppInfo{PID: 100, BundleID: "com.example.editor", Name: "Editor"},
		&fakeElement{value: "body", selected: "chosen words"})

	w := New(ws, nil)
	if got := w.CaptureSelection(); got != "chosen words" {
		t.Errorf("CaptureSelection() = %q, want %q", got, "chosen words")
	}
}

func TestWatcher_CaptureSelectionSecureField(t *testing.T) {
	ws := newFakeWorkspace()
	ws.setFront(AppInfo{PID: 100, BundleID: "com.example.editor", Name: "Editor"},
		&fakeElement{secure: true, selected: "secret"})

	w := New(ws, nil)
	if got := w.CaptureSelection(); got != "" {
		t.Errorf("CaptureSelection() = %q, want empty for secure field", got)
	}
}

func TestWatcher_CaptureSelectionWithoutPermission(t *testing.T) {
	ws := newFakeWorkspace()
	ws.trusted = false
	ws.setFront(AppInfo{PID: 100, BundleID: "com.example.editor", Name: "Editor"},
		&fakeElement{selected: "chosen"})

	w := New(ws, nil)
	if got := w.CaptureSelection(); got != "" {
		t.Errorf("CaptureSelection() = %q, want empty without permission", got)
	}
}

func TestWatcher_CaptureSelectionFromLastApp(t *testing.T) {
	ws := newFakeWorkspace()
	ws.setFront(AppInfo{PID: 100, BundleID: "com.example.editor", Name: "Editor"},
		&fakeElement{selected: "from editor"})

	w := New(ws, nil, WithInterval(5*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	drain(w, 30*time.Millisecond)
	w.Stop()

	// Assistant regains focus; the selection should still come from the editor
	ws.setFront(AppInfo{PID: 1, BundleID: ws.ownID, Name: "Nova"}, nil)

	if got := w.CaptureSelectionFromLastApp(); got != "from editor" {
		t.Errorf("CaptureSelectionFromLastApp() = %q, want %q", got, "from editor")
	}
}

func TestWatcher_CaptureSelectionFromLastAppRelaunch(t *testing.T) {
	ws := newFakeWorkspace()
	ws.setFront(AppInfo{PID: 100, BundleID: "com.example.editor", Name: "Editor"},
		&fakeElement{selected: "old pid"})

	w := New(ws, nil, WithInterval(5*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	drain(w, 30*time.Millisecond)
	w.Stop()

	// The editor relaunched under a new pid
	ws.mu.Lock()
	ws.apps["com.example.editor"] = AppInfo{PID: 200, BundleID: "com.example.editor", Name: "Editor"}
	ws.focused[200] = &fakeElement{selected: "new pid"}
	ws.mu.Unlock()

	if got := w.CaptureSelectionFromLastApp(); got != "new pid" {
		t.Errorf("CaptureSelectionFromLastApp() = %q, want %q", got, "new pid")
	}
}

// Screenshotter sanity: a capture is emitted once per app change.
type fakeShooter struct{ img []byte }

func (f *fakeShooter) CaptureApp(ctx context.Context, pid int) ([]byte, bool) {
	return f.img, len(f.img) > 0
}

func TestWatcher_ScreenshotOnAppChange(t *testing.T) {
	ws := newFakeWorkspace()
	ws.setFront(AppInfo{PID: 100, BundleID: "com.example.editor", Name: "Editor"},
		&fakeElement{value: "text"})

	w := New(ws, &fakeShooter{img: []byte{0x89, 0x50}}, WithInterval(5*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	var shots int
	for _, ev := range drain(w, 60*time.Millisecond) {
		if _, ok := ev.(ScreenshotEvent); ok {
			shots++
		}
	}
	if shots != 1 {
		t.Errorf("got %d screenshot events, want 1", shots)
	}
}
