package models

import "time"

// Capture limits
const (
	// MaxContextChars caps captured accessibility text before it is stored as
	// pending context or returned from a selection capture.
	MaxContextChars = 8000

	// DefaultPollInterval is how often the context watcher inspects the
	// frontmost application.
	DefaultPollInterval = 2 * time.Second
)

// Backend defaults
const (
	DefaultBackendURL = "http://127.0.0.1:8000"
	DefaultAppName    = "multi_tool_agent"
	DefaultUserID     = "u"

	// TurnPath is the turn endpoint; the response body is either a single
	// JSON document or an SSE-style stream of data: frames.
	TurnPath = "/run_sse"
)

// SessionPath returns the session-creation path for an app/user/session
// triple. A 2xx or an already-exists conflict are both treated as success.
func SessionPath(appName, userID, sessionID string) string {
	return "/apps/" + appName + "/users/" + userID + "/sessions/" + sessionID
}
