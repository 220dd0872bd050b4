// Package extract walks a foreign application's accessibility tree and pulls
// out the most relevant visible text.
package extract

import (
	"strings"

	"github.com/novahq/nova/internal/models"
)

// Element is one node of a platform accessibility tree. Every accessor
// reports absence with a false second return; a missing attribute is never an
// error. Implementations must be comparable (pointer types are), since the
// walker tracks visited node identities to survive cyclic trees.
type Element interface {
	// Secure reports whether the node is a password-style protected field.
	Secure() bool
	// Value returns the node's value text attribute.
	Value() (string, bool)
	// Title returns the node's title text attribute.
	Title() (string, bool)
	// SelectedText returns the current selection, when the node exposes one.
	SelectedText() (string, bool)
	// SelectedRange returns the selection range, when the node exposes one.
	SelectedRange() (start, length int, ok bool)
	// TextForRange returns the text covering a character range in bulk.
	TextForRange(start, length int) (string, bool)
	// CharCount returns the node's total character count.
	CharCount() (int, bool)
	// VisibleChildren returns only the children currently on screen.
	VisibleChildren() ([]Element, bool)
	// Children returns all child nodes.
	Children() ([]Element, bool)
}

// Collect returns the visible text beneath root, depth-first pre-order,
// clipped to models.MaxContextChars. Secure fields contribute nothing.
func Collect(root Element) string {
	if root == nil {
		return ""
	}
	w := walker{visited: make(map[Element]struct{})}
	text := strings.TrimSpace(w.collect(root))
	return Clip(text, models.MaxContextChars)
}

type walker struct {
	visited map[Element]struct{}
}

// collect applies the extraction strategies in priority order; the first one
// that yields text wins.
func (w *walker) collect(el Element) string {
	if el == nil {
		return ""
	}
	if _, seen := w.visited[el]; seen {
		// Already visited in this walk: malformed or cyclic tree
		return ""
	}
	w.visited[el] = struct{}{}

	if el.Secure() {
		return ""
	}

	// Bulk text range pulls the full content in one call when supported
	if n, ok := el.CharCount(); ok && n > 0 {
		if text, ok := el.TextForRange(0, n); ok && text != "" {
			return text
		}
	}

	if value, ok := el.Value(); ok {
		return value
	}

	if title, ok := el.Title(); ok && title != "" {
		return title
	}

	children, ok := el.VisibleChildren()
	if !ok {
		children, _ = el.Children()
	}

	var sb strings.Builder
	for _, child := range children {
		t := w.collect(child)
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t)
	}
	return sb.String()
}

// SelectedTextOf returns the element's current selection, falling back to
// range extraction and finally the full value. Empty when nothing is
// selected or the field is secure.
func SelectedTextOf(el Element) string {
	if el == nil || el.Secure() {
		return ""
	}

	if selected, ok := el.SelectedText(); ok && selected != "" {
		return Clip(selected, models.MaxContextChars)
	}

	if start, length, ok := el.SelectedRange(); ok && length > 0 {
		if text, ok := el.TextForRange(start, length); ok && text != "" {
			return Clip(text, models.MaxContextChars)
		}
	}

	if value, ok := el.Value(); ok && value != "" {
		return Clip(value, models.MaxContextChars)
	}
	return ""
}

// Clip truncates s to at most max characters (runes, not bytes).
func Clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
