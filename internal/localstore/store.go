// Package localstore is the client-side durable task cache: a single JSON
// file holding the working copy of the board, replaced wholesale on every
// save. Missing or unreadable data reads as an empty board so the agent can
// always start, offline or not.
package localstore

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"taskflow/internal/domain"
)

// Store persists a task collection to a JSON file. A single in-process
// writer is assumed; the mutex only serializes calls from the same process.
type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store backed by the file at path. Nothing is created until
// the first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// record is the persisted shape of a task. Field names mirror the wire
// format, and DueDate is omitted when absent so "no due date" survives a
// round trip distinct from any concrete value.
type record struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Load reads the persisted task set. A missing or corrupt file yields an
// empty set, never an error: local data problems must not stop the client.
// Entries missing id, title or a timestamp are silently dropped; unknown
// priority or status values are coerced to defaults.
func (s *Store) Load() ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		// A store that was never saved is the normal first run; anything
		// else is worth a line in the log before starting empty.
		if !os.IsNotExist(err) {
			log.Printf("local store %s unreadable, starting empty: %v", s.path, err)
		}
		return nil, nil
	}
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		log.Printf("local store %s corrupt, starting empty: %v", s.path, err)
		return nil, nil
	}

	tasks := make([]domain.Task, 0, len(recs))
	for _, r := range recs {
		t := domain.Task{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Category:    r.Category,
			Priority:    domain.Priority(r.Priority),
			Status:      domain.Status(r.Status),
			DueDate:     r.DueDate,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
		if t.Validate() != nil {
			continue
		}
		tasks = append(tasks, t.Normalize())
	}
	return tasks, nil
}

// Save replaces the persisted set with tasks. The write goes to a temp file
// first and is renamed into place, so a reader never observes a partial
// write: either the new set is stored or the old one remains.
func (s *Store) Save(tasks []domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := make([]record, 0, len(tasks))
	for _, t := range tasks {
		recs = append(recs, record{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Category:    t.Category,
			Priority:    string(t.Priority),
			Status:      string(t.Status),
			DueDate:     t.DueDate,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		})
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Clear removes the persisted set. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
