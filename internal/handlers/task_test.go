package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"taskflow/internal/auth"
	dom "taskflow/internal/domain"
	"taskflow/internal/dto"
	"taskflow/internal/repo"
	"taskflow/internal/service"
)

// mockTaskService implements TaskService for handler tests.
type mockTaskService struct {
	CreateFunc    func(ctx context.Context, userID int64, t dom.Task) (dom.Task, error)
	UpsertFunc    func(ctx context.Context, userID int64, t dom.Task) (dom.Task, error)
	ListFunc      func(ctx context.Context, userID int64, f repo.ListFilter) ([]dom.Task, error)
	OverdueFunc   func(ctx context.Context, userID int64) ([]dom.Task, error)
	GetByIDFunc   func(ctx context.Context, userID int64, id string) (dom.Task, error)
	UpdateFunc    func(ctx context.Context, userID int64, id string, p service.TaskPatch) (dom.Task, error)
	SetStatusFunc func(ctx context.Context, userID int64, id string, st dom.Status) (dom.Task, error)
	DeleteFunc    func(ctx context.Context, userID int64, id string) error
	SyncApplyFunc func(ctx context.Context, userID int64, client []dom.Task) (service.SyncResult, error)
}

func (m *mockTaskService) Create(ctx context.Context, userID int64, t dom.Task) (dom.Task, error) {
	return m.CreateFunc(ctx, userID, t)
}
func (m *mockTaskService) Upsert(ctx context.Context, userID int64, t dom.Task) (dom.Task, error) {
	return m.UpsertFunc(ctx, userID, t)
}
func (m *mockTaskService) List(ctx context.Context, userID int64, f repo.ListFilter) ([]dom.Task, error) {
	return m.ListFunc(ctx, userID, f)
}
func (m *mockTaskService) Overdue(ctx context.Context, userID int64) ([]dom.Task, error) {
	return m.OverdueFunc(ctx, userID)
}
func (m *mockTaskService) GetByID(ctx context.Context, userID int64, id string) (dom.Task, error) {
	return m.GetByIDFunc(ctx, userID, id)
}
func (m *mockTaskService) Update(ctx context.Context, userID int64, id string, p service.TaskPatch) (dom.Task, error) {
	return m.UpdateFunc(ctx, userID, id, p)
}
func (m *mockTaskService) SetStatus(ctx context.Context, userID int64, id string, st dom.Status) (dom.Task, error) {
	return m.SetStatusFunc(ctx, userID, id, st)
}
func (m *mockTaskService) Delete(ctx context.Context, userID int64, id string) error {
	return m.DeleteFunc(ctx, userID, id)
}
func (m *mockTaskService) SyncApply(ctx context.Context, userID int64, client []dom.Task) (service.SyncResult, error) {
	return m.SyncApplyFunc(ctx, userID, client)
}

const testUserID int64 = 7

func newTestRouter(svc TaskService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Stand-in for the session middleware.
	r.Use(func(c *gin.Context) { auth.SetUserID(c, testUserID) })

	h := NewTaskHandler(svc)
	api := r.Group("/api/v1")
	api.POST("/tasks", h.Create)
	api.GET("/tasks", h.List)
	api.GET("/tasks/overdue", h.Overdue)
	api.POST("/tasks/sync", h.Sync)
	api.GET("/tasks/:id", h.GetByID)
	api.PUT("/tasks/:id", h.Put)
	api.PATCH("/tasks/:id", h.Update)
	api.DELETE("/tasks/:id", h.Delete)
	api.POST("/tasks/:id/status", h.SetStatus)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testTime() time.Time { return time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC) }

func TestCreateTask(t *testing.T) {
	svc := &mockTaskService{
		CreateFunc: func(ctx context.Context, userID int64, in dom.Task) (dom.Task, error) {
			if userID != testUserID {
				t.Errorf("userID = %d, want %d", userID, testUserID)
			}
			in.ID = "generated"
			in.CreatedAt = testTime()
			in.UpdatedAt = testTime()
			return in, nil
		},
	}
	r := newTestRouter(svc)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tasks", gin.H{
		"title":    "new task",
		"priority": "high",
		"dueDate":  "2024-08-01",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp dto.TaskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "generated" || resp.Title != "new task" || resp.Priority != "high" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.DueDate == nil {
		t.Error("dueDate missing from response")
	}
}

func TestCreateTask_MissingTitle(t *testing.T) {
	r := newTestRouter(&mockTaskService{})
	w := doJSON(t, r, http.MethodPost, "/api/v1/tasks", gin.H{"description": "no title"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateTask_IDConflict(t *testing.T) {
	svc := &mockTaskService{
		CreateFunc: func(ctx context.Context, userID int64, in dom.Task) (dom.Task, error) {
			return dom.Task{}, service.ErrIDConflict
		},
	}
	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/v1/tasks", gin.H{"id": "taken", "title": "x"})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestListTasks_PassesFilter(t *testing.T) {
	var gotFilter repo.ListFilter
	svc := &mockTaskService{
		ListFunc: func(ctx context.Context, userID int64, f repo.ListFilter) ([]dom.Task, error) {
			gotFilter = f
			return []dom.Task{{ID: "a", Title: "A", CreatedAt: testTime(), UpdatedAt: testTime()}}, nil
		},
	}
	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/v1/tasks?status=done&category=work&q=report", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotFilter.Status != dom.StatusDone || gotFilter.Category != "work" || gotFilter.Query != "report" {
		t.Errorf("filter = %+v", gotFilter)
	}
	var resp dto.ListTasksResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "a" {
		t.Errorf("items = %+v", resp.Items)
	}
}

func TestListTasks_RejectsUnknownStatus(t *testing.T) {
	w := doJSON(t, newTestRouter(&mockTaskService{}), http.MethodGet, "/api/v1/tasks?status=archived", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	svc := &mockTaskService{
		GetByIDFunc: func(ctx context.Context, userID int64, id string) (dom.Task, error) {
			return dom.Task{}, service.ErrNotFound
		},
	}
	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/v1/tasks/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateTask_ClearsDueDate(t *testing.T) {
	var gotPatch service.TaskPatch
	svc := &mockTaskService{
		UpdateFunc: func(ctx context.Context, userID int64, id string, p service.TaskPatch) (dom.Task, error) {
			gotPatch = p
			return dom.Task{ID: id, Title: "t", CreatedAt: testTime(), UpdatedAt: testTime()}, nil
		},
	}
	w := doJSON(t, newTestRouter(svc), http.MethodPatch, "/api/v1/tasks/t1", gin.H{"dueDate": ""})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !gotPatch.ClearDueDate {
		t.Error("empty dueDate should clear, patch did not request it")
	}
}

func TestPutTask_UsesPathID(t *testing.T) {
	svc := &mockTaskService{
		UpsertFunc: func(ctx context.Context, userID int64, in dom.Task) (dom.Task, error) {
			return in, nil
		},
	}
	w := doJSON(t, newTestRouter(svc), http.MethodPut, "/api/v1/tasks/path-id", dto.TaskPayload{
		ID:        "body-id", // path wins
		Title:     "full task",
		Priority:  "low",
		Status:    "todo",
		CreatedAt: testTime(),
		UpdatedAt: testTime(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp dto.TaskResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != "path-id" {
		t.Errorf("id = %q, want path id to win over body id", resp.ID)
	}
}

func TestDeleteTask(t *testing.T) {
	svc := &mockTaskService{
		DeleteFunc: func(ctx context.Context, userID int64, id string) error { return nil },
	}
	w := doJSON(t, newTestRouter(svc), http.MethodDelete, "/api/v1/tasks/t1", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
}

func TestSetStatus(t *testing.T) {
	svc := &mockTaskService{
		SetStatusFunc: func(ctx context.Context, userID int64, id string, st dom.Status) (dom.Task, error) {
			if st != dom.StatusDone {
				t.Errorf("status = %q, want done", st)
			}
			return dom.Task{ID: id, Title: "t", Status: st, CreatedAt: testTime(), UpdatedAt: testTime()}, nil
		},
	}
	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/v1/tasks/t1/status", gin.H{"status": "done"})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestSync_DropsInvalidAndReportsCounts(t *testing.T) {
	var gotClient []dom.Task
	svc := &mockTaskService{
		SyncApplyFunc: func(ctx context.Context, userID int64, client []dom.Task) (service.SyncResult, error) {
			gotClient = client
			return service.SyncResult{Merged: client, Created: 1, Updated: 0}, nil
		},
	}
	valid := dto.TaskPayload{ID: "ok", Title: "fine", CreatedAt: testTime(), UpdatedAt: testTime()}
	invalid := dto.TaskPayload{ID: "", Title: "no id"}

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/v1/tasks/sync",
		dto.SyncRequest{Tasks: []dto.TaskPayload{valid, invalid}})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(gotClient) != 1 || gotClient[0].ID != "ok" {
		t.Errorf("service received %+v, want only the valid task", gotClient)
	}
	var resp dto.SyncResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Dropped != 1 || resp.Created != 1 {
		t.Errorf("resp = %+v, want dropped=1 created=1", resp)
	}
}
