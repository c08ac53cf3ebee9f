package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTask is the base error for tasks that fail required-field checks.
var ErrInvalidTask = errors.New("invalid task")

// Priority of a task on the board.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status is the board column a task lives in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inProgress"
	StatusDone       Status = "done"
)

// ParsePriority parses s case-insensitively. Empty or unknown values fall
// back to medium so a half-formed task still lands somewhere sensible.
func ParsePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// ParseStatus parses s case-insensitively. Empty or unknown values fall back
// to todo.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inprogress", "in_progress", "in-progress":
		return StatusInProgress
	case "done":
		return StatusDone
	default:
		return StatusTodo
	}
}

// ValidPriority reports whether p is one of the three known priorities.
func ValidPriority(p Priority) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidStatus reports whether st is one of the three board columns.
func ValidStatus(st Status) bool {
	return st == StatusTodo || st == StatusInProgress || st == StatusDone
}

// Task is the domain entity. It carries no framework types so the same
// struct flows through the server repo, the Redis cache, the local store
// and the reconciler.
//
// ID is an opaque unique string; the client or the server may generate it.
// UpdatedAt is bumped on every mutation and never moves backwards.
type Task struct {
	ID          string
	UserID      int64
	Title       string
	Description string
	Category    string
	Priority    Priority
	Status      Status
	DueDate     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the fields a task cannot live without: id, title and both
// timestamps. Entries failing this are dropped on local-store load and
// rejected at the API boundary.
func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTask)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidTask)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing createdAt", ErrInvalidTask)
	}
	if t.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: missing updatedAt", ErrInvalidTask)
	}
	return nil
}

// Normalize trims the text fields and coerces priority and status to known
// values. It does not touch ids or timestamps.
func (t Task) Normalize() Task {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	if !ValidPriority(t.Priority) {
		t.Priority = ParsePriority(string(t.Priority))
	}
	if !ValidStatus(t.Status) {
		t.Status = ParseStatus(string(t.Status))
	}
	return t
}
