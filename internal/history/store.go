// Package history provides local transcript persistence for nova sessions.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/novahq/nova/internal/models"
)

// Transcript is one persisted conversation, keyed by the backend session id.
type Transcript struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	SessionID string           `json:"session_id"`
	AppName   string           `json:"app_name,omitempty"` // recognized foreign app, if any
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Messages  []models.Message `json:"messages"`
}

// Store manages transcript persistence under a base directory.
type Store struct {
	baseDir string
	mu      sync.RWMutex
}

// NewStore creates a transcript store rooted at baseDir/history.
func NewStore(baseDir string) (*Store, error) {
	historyDir := filepath.Join(baseDir, "history")
	if err := os.MkdirAll(historyDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return &Store{baseDir: historyDir}, nil
}

// Create starts a new transcript for a backend session.
func (s *Store) Create(sessionID string) (*Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	tr := &Transcript{
		ID:        uuid.NewString(),
		Title:     fmt.Sprintf("Chat %s", now.Format("2006-01-02 15:04")),
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []models.Message{},
	}
	if err := s.save(tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// Get retrieves a transcript by id.
func (s *Store) Get(id string) (*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(id)
}

// List returns all transcripts, most recently updated first.
func (s *Store) List() ([]*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var transcripts []*Transcript
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id := entry.Name()[:len(entry.Name())-5]
		tr, err := s.load(id)
		if err != nil {
			continue // Skip corrupted files
		}
		transcripts = append(transcripts, tr)
	}

	sort.Slice(transcripts, func(i, j int) bool {
		return transcripts[i].UpdatedAt.After(transcripts[j].UpdatedAt)
	})
	return transcripts, nil
}

// SetMessages replaces the transcript's message list with a fresh snapshot
// from the orchestrator.
func (s *Store) SetMessages(id string, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, err := s.load(id)
	if err != nil {
		return err
	}

	tr.Messages = messages
	tr.UpdatedAt = time.Now()

	// Title follows the first user message until renamed
	for _, m := range messages {
		if m.Role == models.RoleUser {
			title := m.Text
			if len(title) > 50 {
				title = title[:50] + "..."
			}
			tr.Title = title
			break
		}
	}
	return s.save(tr)
}

// SetAppName records the recognized foreign app the session ran against.
func (s *Store) SetAppName(id, appName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, err := s.load(id)
	if err != nil {
		return err
	}
	tr.AppName = appName
	tr.UpdatedAt = time.Now()
	return s.save(tr)
}

// Delete removes a transcript.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("transcript not found: %s", id)
		}
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

// ClearAll deletes all transcripts.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read history directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, entry.Name())); err != nil {
			return fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *Store) load(id string) (*Transcript, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("transcript not found: %s", id)
		}
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	var tr Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse transcript: %w", err)
	}
	return &tr, nil
}

func (s *Store) save(tr *Transcript) error {
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	// 0o600: transcripts may contain captured screen text
	if err := os.WriteFile(s.path(tr.ID), data, 0o600); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
