package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskflow/internal/dto"
)

func TestLoginCarriesSessionCookie(t *testing.T) {
	var sawCookie bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			var req dto.LoginRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username != "alice" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "s3cr3t", Path: "/"})
			w.Write([]byte(`{"ok":true}`))
		case "/api/v1/tasks":
			c, err := r.Cookie("session_id")
			sawCookie = err == nil && c.Value == "s3cr3t"
			json.NewEncoder(w).Encode(dto.ListTasksResponse{})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Login(context.Background(), "alice", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := c.ListTasks(context.Background()); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if !sawCookie {
		t.Error("session cookie was not sent on the next request")
	}
}

func TestListTasksDecodesDomain(t *testing.T) {
	due := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(dto.ListTasksResponse{Items: []dto.TaskResponse{
			{ID: "a", Title: "A", Priority: "high", Status: "done", DueDate: &due, CreatedAt: now, UpdatedAt: now},
			{ID: "b", Title: "B", Priority: "low", Status: "todo", CreatedAt: now, UpdatedAt: now},
		}})
	}))
	defer srv.Close()

	c, _ := New(srv.URL, 5*time.Second)
	tasks, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].ID != "a" || string(tasks[0].Status) != "done" || tasks[0].DueDate == nil {
		t.Errorf("task a = %+v", tasks[0])
	}
	if tasks[1].DueDate != nil {
		t.Errorf("task b dueDate = %v, want nil", tasks[1].DueDate)
	}
}

func TestCreateTaskPutsByID(t *testing.T) {
	var gotMethod, gotPath string
	var gotPayload dto.TaskPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, 5*time.Second)
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	task := dto.TaskPayload{ID: "t1", Title: "T", Priority: "medium", Status: "todo",
		CreatedAt: now, UpdatedAt: now}.ToDomain()

	if err := c.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/v1/tasks/t1" {
		t.Errorf("request = %s %s, want PUT /api/v1/tasks/t1", gotMethod, gotPath)
	}
	if gotPayload.ID != "t1" || gotPayload.UpdatedAt.IsZero() {
		t.Errorf("payload = %+v, timestamps must survive the push", gotPayload)
	}
}

func TestTransportError_Retryable(t *testing.T) {
	cases := []struct {
		status    int
		retryable bool
	}{
		{0, true}, // network failure, no response
		{500, true},
		{503, true},
		{429, true},
		{400, false},
		{401, false},
		{404, false},
		{409, false},
	}
	for _, tc := range cases {
		e := &TransportError{Op: "x", Status: tc.status}
		if e.Retryable() != tc.retryable {
			t.Errorf("Retryable() for status %d = %v, want %v", tc.status, e.Retryable(), tc.retryable)
		}
	}
}

func TestServerErrorSurfacesAsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, 5*time.Second)
	_, err := c.ListTasks(context.Background())

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %T %v, want *TransportError", err, err)
	}
	if te.Status != http.StatusBadGateway || !te.Retryable() {
		t.Errorf("TransportError = %+v, want retryable 502", te)
	}
}

func TestNetworkFailureSurfacesAsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c, _ := New(srv.URL, time.Second)
	_, err := c.ListTasks(context.Background())

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %T %v, want *TransportError", err, err)
	}
	if te.Status != 0 || !te.Retryable() {
		t.Errorf("TransportError = %+v, want retryable network failure", te)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := New("not a url", time.Second); err == nil {
		t.Error("expected error for invalid base URL")
	}
}
