package commands

import (
	"testing"

	"github.com/novahq/nova/internal/history"
)

func TestResolveTranscript(t *testing.T) {
	store, err := history.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	tr, err := store.Create("session-1")
	if err != nil {
		t.Fatal(err)
	}

	got, err := resolveTranscript(store, tr.ID)
	if err != nil {
		t.Fatalf("resolveTranscript(full id) error = %v", err)
	}
	if got.ID != tr.ID {
		t.Errorf("resolved %s, want %s", got.ID, tr.ID)
	}

	got, err = resolveTranscript(store, tr.ID[:8])
	if err != nil {
		t.Fatalf("resolveTranscript(prefix) error = %v", err)
	}
	if got.ID != tr.ID {
		t.Errorf("prefix resolved %s, want %s", got.ID, tr.ID)
	}

	if _, err := resolveTranscript(store, "zzzz"); err == nil {
		t.Error("resolveTranscript(unknown) expected error")
	}
}

func TestResolveTranscript_AmbiguousPrefix(t *testing.T) {
	store, err := history.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create("s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create("s2"); err != nil {
		t.Fatal(err)
	}

	// Every uuid shares the empty prefix
	if _, err := resolveTranscript(store, ""); err == nil {
		t.Error("resolveTranscript(\"\") expected ambiguity error")
	}
}
