package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/novahq/nova/internal/extract"
	"github.com/novahq/nova/internal/watch"
)

// NoopWorkspace is a workspace for hosts without an accessibility backend.
// Trust is never granted, so starting auto-capture yields an actionable
// permission error rather than silent emptiness.
type NoopWorkspace struct{}

func (NoopWorkspace) Trusted(bool) bool                             { return false }
func (NoopWorkspace) FrontmostApp() (watch.AppInfo, bool)           { return watch.AppInfo{}, false }
func (NoopWorkspace) OwnBundleID() string                           { return "com.novahq.nova" }
func (NoopWorkspace) FocusedElement(int) (extract.Element, bool)    { return nil, false }
func (NoopWorkspace) FindApp(string) (watch.AppInfo, bool)          { return watch.AppInfo{}, false }

// TriggerSnip launches the external screen-region snipping tool as a
// detached process writing to a fixed file path. Best effort: the caller
// polls the path; a missing file simply means no snip was taken.
func TriggerSnip(ctx context.Context, tool, outPath string) error {
	cmd := exec.CommandContext(ctx, tool, outPath)
	return cmd.Start()
}

// CommandSnipper captures a screen region through an external snipping tool
// and returns the image bytes once the tool writes its output file.
type CommandSnipper struct {
	command string
	outPath string
}

// NewCommandSnipper creates a snipper around the given tool command. The
// output file lives in the OS temp directory.
func NewCommandSnipper(command string) *CommandSnipper {
	return &CommandSnipper{
		command: command,
		outPath: filepath.Join(os.TempDir(), "nova-snip.png"),
	}
}

// Snip triggers the tool and polls for the output file until it appears or
// ctx expires. The file is removed after a successful read so a stale snip is
// never attached twice.
func (s *CommandSnipper) Snip(ctx context.Context) ([]byte, error) {
	_ = os.Remove(s.outPath)

	if err := TriggerSnip(ctx, s.command, s.outPath); err != nil {
		return nil, fmt.Errorf("failed to launch snip tool %q: %w", s.command, err)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("no screen region captured: %w", ctx.Err())
		case <-ticker.C:
			info, err := os.Stat(s.outPath)
			if err != nil || info.Size() == 0 {
				continue
			}
			data, err := os.ReadFile(s.outPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read snip output: %w", err)
			}
			_ = os.Remove(s.outPath)
			return data, nil
		}
	}
}
