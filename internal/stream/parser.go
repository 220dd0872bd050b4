// Package stream decodes backend turn responses: either a single JSON
// document or an SSE-style stream of data: frames carrying repeated JSON
// payloads.
package stream

import (
	"strings"

	"github.com/tidwall/gjson"

	apierrors "github.com/novahq/nova/internal/errors"
)

// doneSentinel terminates some event streams and carries no payload.
const doneSentinel = "[DONE]"

// Decoder accumulates SSE lines into discrete payloads. Consecutive data:
// lines are joined by newline; a blank line flushes the buffer as one
// payload. event: and id: metadata lines are ignored.
type Decoder struct {
	buf     []string
	sawData bool
}

// SawData reports whether any data: line has been fed so far.
func (d *Decoder) SawData() bool { return d.sawData }

// Feed consumes one line and returns a completed payload when the line
// finishes a frame.
func (d *Decoder) Feed(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return d.Flush()
	case strings.HasPrefix(trimmed, "data:"):
		d.sawData = true
		part := strings.TrimSpace(strings.TrimPrefix(trimmed, "data:"))
		if part == doneSentinel {
			return "", false
		}
		d.buf = append(d.buf, part)
	case strings.HasPrefix(trimmed, "event:"), strings.HasPrefix(trimmed, "id:"):
		// Metadata lines carry no payload
	}
	return "", false
}

// Flush returns any buffered payload; used for a trailing frame that was not
// followed by a blank line.
func (d *Decoder) Flush() (string, bool) {
	if len(d.buf) == 0 {
		return "", false
	}
	payload := strings.Join(d.buf, "\n")
	d.buf = nil
	if payload == "" {
		return "", false
	}
	return payload, true
}

// Text parses one JSON payload and returns the assistant text it carries
// (the joined text parts of the message content).
func Text(payload string) (string, error) {
	if !gjson.Valid(payload) {
		return "", apierrors.NewDecodeError("payload is not valid JSON", nil)
	}

	parts := gjson.Get(payload, "content.parts")
	if !parts.Exists() {
		// Tolerate bare {"text": ...} frames some backends emit
		if t := gjson.Get(payload, "text"); t.Exists() {
			return t.String(), nil
		}
		return "", nil
	}

	var sb strings.Builder
	parts.ForEach(func(_, part gjson.Result) bool {
		sb.WriteString(part.Get("text").String())
		return true
	})
	return sb.String(), nil
}

// Payloads splits a complete response body into discrete JSON payloads.
// A body with no data: lines is treated as a single JSON document.
func Payloads(raw []byte) []string {
	var (
		dec      Decoder
		payloads []string
	)
	for _, line := range strings.Split(string(raw), "\n") {
		if p, ok := dec.Feed(line); ok {
			payloads = append(payloads, p)
		}
	}
	if p, ok := dec.Flush(); ok {
		payloads = append(payloads, p)
	}

	if !dec.SawData() {
		payloads = payloads[:0]
		if doc := strings.TrimSpace(string(raw)); doc != "" && doc != doneSentinel {
			payloads = append(payloads, doc)
		}
	}
	return payloads
}

// Extract decodes a full response body and selects the assistant text.
//
// The backend may emit interim frames before a final authoritative one, so
// the last successfully parsed non-empty text wins. When nothing parsed but
// at least one payload was malformed, the first parse error is surfaced.
// A body with no payloads at all is a decode failure.
func Extract(raw []byte) (string, error) {
	payloads := Payloads(raw)
	if len(payloads) == 0 {
		return "", apierrors.NewDecodeError("response contained no payloads", nil)
	}

	var (
		text     string
		found    bool
		firstErr error
	)
	for _, payload := range payloads {
		t, err := Text(payload)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		found = true
		if t != "" {
			text = t
		}
	}

	if !found && firstErr != nil {
		return "", firstErr
	}
	return text, nil
}
