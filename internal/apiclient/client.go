// Package apiclient is the HTTP client the sync agent uses to talk to the
// board API. Session auth rides on a cookie jar; every failure surfaces as
// a TransportError so the caller can tell retryable conditions apart.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"taskflow/internal/domain"
	"taskflow/internal/dto"
)

// TransportError wraps a failed request against the board API.
// Status is 0 when the request never produced a response.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether retrying the same request can succeed:
// network failures, 5xx and 429. Client errors are not retryable.
func (e *TransportError) Retryable() bool {
	return e.Status == 0 || e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// Client talks to one board API instance on behalf of one account.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the API at baseURL. The timeout bounds every
// request; a push that exceeds it is reported failed, never left hanging.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}, nil
}

// Login authenticates and stores the session cookie in the jar.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := dto.LoginRequest{Username: username, Password: password}
	return c.do(ctx, "login", http.MethodPost, "/api/v1/auth/login", body, nil)
}

// Register creates the account and leaves the client logged in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body := dto.RegisterRequest{Username: username, Password: password}
	return c.do(ctx, "register", http.MethodPost, "/api/v1/auth/register", body, nil)
}

// ListTasks fetches the server's snapshot of the board.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var resp dto.ListTasksResponse
	if err := c.do(ctx, "list tasks", http.MethodGet, "/api/v1/tasks", nil, &resp); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, len(resp.Items))
	for i, item := range resp.Items {
		tasks[i] = item.ToDomain()
	}
	return tasks, nil
}

// CreateTask pushes a local-only task to the server. The write is a full
// upsert keyed by id, so repeating it after a failure has no effect beyond
// overwriting the server copy with the same data.
func (c *Client) CreateTask(ctx context.Context, t domain.Task) error {
	return c.putTask(ctx, "create task", t)
}

// UpdateTask overwrites the server copy with the newer local version.
// Same idempotent upsert as CreateTask; the two exist so sync reports can
// tell creations and updates apart.
func (c *Client) UpdateTask(ctx context.Context, t domain.Task) error {
	return c.putTask(ctx, "update task", t)
}

func (c *Client) putTask(ctx context.Context, op string, t domain.Task) error {
	path := "/api/v1/tasks/" + url.PathEscape(t.ID)
	return c.do(ctx, op, http.MethodPut, path, dto.PayloadFromDomain(t), nil)
}

// SyncTasks sends the whole local snapshot in one batch and returns the
// server's merged view.
func (c *Client) SyncTasks(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	req := dto.SyncRequest{Tasks: make([]dto.TaskPayload, len(tasks))}
	for i, t := range tasks {
		req.Tasks[i] = dto.PayloadFromDomain(t)
	}
	var resp dto.SyncResponse
	if err := c.do(ctx, "sync tasks", http.MethodPost, "/api/v1/tasks/sync", req, &resp); err != nil {
		return nil, err
	}
	merged := make([]domain.Task, len(resp.Tasks))
	for i, item := range resp.Tasks {
		merged[i] = item.ToDomain()
	}
	return merged, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &TransportError{Op: op, Status: resp.StatusCode}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
