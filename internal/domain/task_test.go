package domain

import (
	"errors"
	"testing"
	"time"
)

func validTask() Task {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return Task{
		ID:        "abc",
		Title:     "do the thing",
		Priority:  PriorityMedium,
		Status:    StatusTodo,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Task)
		ok     bool
	}{
		{"valid", func(*Task) {}, true},
		{"missing id", func(tk *Task) { tk.ID = "  " }, false},
		{"missing title", func(tk *Task) { tk.Title = "" }, false},
		{"missing createdAt", func(tk *Task) { tk.CreatedAt = time.Time{} }, false},
		{"missing updatedAt", func(tk *Task) { tk.UpdatedAt = time.Time{} }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := validTask()
			tc.mutate(&task)
			err := task.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !errors.Is(err, ErrInvalidTask) {
					t.Errorf("error %v does not wrap ErrInvalidTask", err)
				}
			}
		})
	}
}

func TestParsePriority(t *testing.T) {
	cases := map[string]Priority{
		"low":    PriorityLow,
		"LOW":    PriorityLow,
		" High ": PriorityHigh,
		"medium": PriorityMedium,
		"":       PriorityMedium,
		"urgent": PriorityMedium,
	}
	for in, want := range cases {
		if got := ParsePriority(in); got != want {
			t.Errorf("ParsePriority(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"todo":        StatusTodo,
		"inProgress":  StatusInProgress,
		"INPROGRESS":  StatusInProgress,
		"in_progress": StatusInProgress,
		"in-progress": StatusInProgress,
		"done":        StatusDone,
		"":            StatusTodo,
		"archived":    StatusTodo,
	}
	for in, want := range cases {
		if got := ParseStatus(in); got != want {
			t.Errorf("ParseStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	task := validTask()
	task.Title = "  padded  "
	task.Category = " work "
	task.Priority = "URGENT"
	task.Status = "shipped"

	got := task.Normalize()

	if got.Title != "padded" || got.Category != "work" {
		t.Errorf("trim failed: %q / %q", got.Title, got.Category)
	}
	if got.Priority != PriorityMedium {
		t.Errorf("priority = %q, want coerced medium", got.Priority)
	}
	if got.Status != StatusTodo {
		t.Errorf("status = %q, want coerced todo", got.Status)
	}
	// Normalize must not touch identity or timestamps.
	if got.ID != task.ID || !got.CreatedAt.Equal(task.CreatedAt) || !got.UpdatedAt.Equal(task.UpdatedAt) {
		t.Error("Normalize changed id or timestamps")
	}
}
