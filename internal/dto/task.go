package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/domain"
)

// DueDate parses dueDate from JSON as either date-only ("2006-01-02") or
// RFC3339. Date-only is stored as start of that day in UTC. Null and empty
// string both mean "no due date".
type DueDate struct{ t *time.Time }

func (d *DueDate) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.t = nil
		return nil
	}
	s := strings.TrimSpace(*raw)
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			if layout == "2006-01-02" {
				parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			}
			d.t = &parsed
			return nil
		}
	}
	return fmt.Errorf("dueDate: use date (YYYY-MM-DD) or RFC3339 datetime")
}

func (d DueDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.t)
}

// Ptr returns *time.Time for use in service/domain.
func (d DueDate) Ptr() *time.Time { return d.t }

type CreateTaskRequest struct {
	// ID is optional; the server generates one when absent. Clients that
	// created the task offline supply their own.
	ID          string  `json:"id" binding:"omitempty,max=64"`
	Title       string  `json:"title" binding:"required,min=1,max=200"`
	Description string  `json:"description" binding:"max=2000"`
	Category    string  `json:"category" binding:"max=100"`
	Priority    string  `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      string  `json:"status" binding:"omitempty,oneof=todo inProgress done"`
	DueDate     DueDate `json:"dueDate"`
}

type UpdateTaskRequest struct {
	Title       *string  `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string  `json:"description" binding:"omitempty,max=2000"`
	Category    *string  `json:"category" binding:"omitempty,max=100"`
	Priority    *string  `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      *string  `json:"status" binding:"omitempty,oneof=todo inProgress done"`
	DueDate     *DueDate `json:"dueDate"` // nil = keep, empty string or null = clear
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=todo inProgress done"`
}

// TaskPayload is a full task as carried by PUT /tasks/{id} and the batch
// sync endpoint. No binding tags: the sync handler drops invalid entries
// instead of rejecting the whole batch, so validation happens in domain.
type TaskPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	DueDate     DueDate   `json:"dueDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ToDomain converts the payload without validating it; callers decide
// whether to reject or drop invalid tasks.
func (p TaskPayload) ToDomain() domain.Task {
	return domain.Task{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Priority:    domain.Priority(p.Priority),
		Status:      domain.Status(p.Status),
		DueDate:     p.DueDate.Ptr(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// PayloadFromDomain builds the wire payload for a task push.
func PayloadFromDomain(t domain.Task) TaskPayload {
	var due DueDate
	due.t = t.DueDate
	return TaskPayload{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		DueDate:     due,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type TaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ToDomain converts a response body back to the domain entity; the sync
// agent uses this after fetching the server snapshot.
func (r TaskResponse) ToDomain() domain.Task {
	return domain.Task{
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
}

func ResponseFromDomain(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func ResponsesFromDomain(list []domain.Task) []TaskResponse {
	out := make([]TaskResponse, len(list))
	for i := range list {
		out[i] = ResponseFromDomain(list[i])
	}
	return out
}

type ListTasksResponse struct {
	Items []TaskResponse `json:"items"`
}

type SyncRequest struct {
	Tasks []TaskPayload `json:"tasks"`
}

type SyncResponse struct {
	Tasks   []TaskResponse `json:"tasks"`
	Created int            `json:"created"`
	Updated int            `json:"updated"`
	Dropped int            `json:"dropped"`
}
