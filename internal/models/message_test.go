package models

import "testing"

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "hello")

	if msg.ID == "" {
		t.Error("message has empty id")
	}
	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Text != "hello" {
		t.Errorf("Text = %q, want hello", msg.Text)
	}
	if msg.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	other := NewMessage(RoleAssistant, "hi")
	if other.ID == msg.ID {
		t.Error("two messages share an id")
	}
}

func TestSessionPath(t *testing.T) {
	got := SessionPath("multi_tool_agent", "u", "s1")
	want := "/apps/multi_tool_agent/users/u/sessions/s1"
	if got != want {
		t.Errorf("SessionPath() = %q, want %q", got, want)
	}
}
