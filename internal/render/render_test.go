package render

import (
	"strings"
	"testing"
)

func TestMarkdown_BasicContent(t *testing.T) {
	out, err := Markdown("# Title\n\nSome **bold** text", DefaultOptions())
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(out, "Title") {
		t.Errorf("rendered output missing heading text: %q", out)
	}
	if !strings.Contains(out, "bold") {
		t.Errorf("rendered output missing body text: %q", out)
	}
}

func TestMarkdown_EmptyContent(t *testing.T) {
	if _, err := Markdown("", DefaultOptions()); err != nil {
		t.Errorf("Markdown(\"\") error = %v", err)
	}
}

func TestMarkdownWithWidth(t *testing.T) {
	long := strings.Repeat("word ", 50)
	out, err := MarkdownWithWidth(long, 40)
	if err != nil {
		t.Fatalf("MarkdownWithWidth() error = %v", err)
	}
	for _, line := range strings.Split(out, "\n") {
		if len([]rune(line)) > 60 {
			t.Errorf("line exceeds wrap width: %q", line)
			break
		}
	}
}

func TestOptions_Builders(t *testing.T) {
	opts := DefaultOptions().WithWidth(120).WithStyle("light")
	if opts.Width != 120 {
		t.Errorf("Width = %d, want 120", opts.Width)
	}
	if opts.Style != "light" {
		t.Errorf("Style = %q, want light", opts.Style)
	}
	if !opts.PreserveNewLines {
		t.Error("PreserveNewLines lost by builders")
	}
}

func TestMarkdown_RepeatedCallsReusePool(t *testing.T) {
	opts := DefaultOptions()
	for i := 0; i < 5; i++ {
		if _, err := Markdown("repeat *me*", opts); err != nil {
			t.Fatalf("call %d: Markdown() error = %v", i, err)
		}
	}
}
