package handlers

import (
	"context"
	"errors"
	"net/http"

	"taskflow/internal/auth"
	dom "taskflow/internal/domain"
	"taskflow/internal/dto"
	"taskflow/internal/repo"
	"taskflow/internal/service"

	"github.com/gin-gonic/gin"
)

// TaskService is the slice of the service layer the handler uses; tests
// substitute a mock.
type TaskService interface {
	Create(ctx context.Context, userID int64, t dom.Task) (dom.Task, error)
	Upsert(ctx context.Context, userID int64, t dom.Task) (dom.Task, error)
	List(ctx context.Context, userID int64, f repo.ListFilter) ([]dom.Task, error)
	Overdue(ctx context.Context, userID int64) ([]dom.Task, error)
	GetByID(ctx context.Context, userID int64, id string) (dom.Task, error)
	Update(ctx context.Context, userID int64, id string, p service.TaskPatch) (dom.Task, error)
	SetStatus(ctx context.Context, userID int64, id string, st dom.Status) (dom.Task, error)
	Delete(ctx context.Context, userID int64, id string) error
	SyncApply(ctx context.Context, userID int64, client []dom.Task) (service.SyncResult, error)
}

type TaskHandler struct {
	svc TaskService
}

func NewTaskHandler(svc TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// Create godoc
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        body  body      dto.CreateTaskRequest  true  "Task body"
// @Success      201   {object}  dto.TaskResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.svc.Create(c.Request.Context(), auth.UserIDFromContext(c), dom.Task{
		ID:          req.ID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    dom.Priority(req.Priority),
		Status:      dom.Status(req.Status),
		DueDate:     req.DueDate.Ptr(),
	})
	if err != nil {
		if errors.Is(err, service.ErrIDConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, dom.ErrInvalidTask) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dto.ResponseFromDomain(t))
}

// Put godoc
// @Summary      Upsert a task by id (idempotent sync write)
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        id    path      string  true  "Task ID"
// @Param        body  body      dto.TaskPayload  true  "Full task"
// @Success      200   {object}  dto.TaskResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Put(c *gin.Context) {
	var req dto.TaskPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.ID = c.Param("id")

	t, err := h.svc.Upsert(c.Request.Context(), auth.UserIDFromContext(c), req.ToDomain())
	if err != nil {
		if errors.Is(err, service.ErrIDConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, dom.ErrInvalidTask) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ResponseFromDomain(t))
}

// List godoc
// @Summary      List tasks, optionally filtered
// @Tags         tasks
// @Produce      json
// @Security     CookieAuth
// @Param        status    query  string  false  "Board column"  Enums(todo, inProgress, done)
// @Param        category  query  string  false  "Category"
// @Param        q         query  string  false  "Substring match on title/description"
// @Success      200  {object}  dto.ListTasksResponse
// @Failure      500  {object}  map[string]string
// @Router       /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	f := repo.ListFilter{
		Category: c.Query("category"),
		Query:    c.Query("q"),
	}
	if raw := c.Query("status"); raw != "" {
		st := dom.Status(raw)
		if !dom.ValidStatus(st) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}
		f.Status = st
	}

	list, err := h.svc.List(c.Request.Context(), auth.UserIDFromContext(c), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ListTasksResponse{Items: dto.ResponsesFromDomain(list)})
}

// Overdue godoc
// @Summary      List overdue tasks
// @Tags         tasks
// @Produce      json
// @Security     CookieAuth
// @Success      200  {object}  dto.ListTasksResponse
// @Failure      500  {object}  map[string]string
// @Router       /tasks/overdue [get]
func (h *TaskHandler) Overdue(c *gin.Context) {
	list, err := h.svc.Overdue(c.Request.Context(), auth.UserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ListTasksResponse{Items: dto.ResponsesFromDomain(list)})
}

// GetByID godoc
// @Summary      Get a task by ID
// @Tags         tasks
// @Produce      json
// @Security     CookieAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  dto.TaskResponse
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	t, err := h.svc.GetByID(c.Request.Context(), auth.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ResponseFromDomain(t))
}

// Update godoc
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        id    path      string  true  "Task ID"
// @Param        body  body      dto.UpdateTaskRequest  true  "Partial update"
// @Success      200   {object}  dto.TaskResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := service.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}
	if req.Priority != nil {
		pr := dom.Priority(*req.Priority)
		p.Priority = &pr
	}
	if req.Status != nil {
		st := dom.Status(*req.Status)
		p.Status = &st
	}
	if req.DueDate != nil {
		if due := req.DueDate.Ptr(); due != nil {
			p.DueDate = due
		} else {
			p.ClearDueDate = true
		}
	}

	t, err := h.svc.Update(c.Request.Context(), auth.UserIDFromContext(c), c.Param("id"), p)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if errors.Is(err, dom.ErrInvalidTask) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ResponseFromDomain(t))
}

// SetStatus godoc
// @Summary      Move a task between board columns
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        id    path      string  true  "Task ID"
// @Param        body  body      dto.SetStatusRequest  true  "Target column"
// @Success      200   {object}  dto.TaskResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /tasks/{id}/status [post]
func (h *TaskHandler) SetStatus(c *gin.Context) {
	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.svc.SetStatus(c.Request.Context(), auth.UserIDFromContext(c), c.Param("id"), dom.Status(req.Status))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ResponseFromDomain(t))
}

// Delete godoc
// @Summary      Delete a task (hard delete, no tombstone)
// @Tags         tasks
// @Security     CookieAuth
// @Param        id   path  string  true  "Task ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), auth.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Sync godoc
// @Summary      Batch-sync a client task snapshot
// @Description  Reconciles the posted snapshot against the stored set,
// @Description  applies client-side creates/updates, and returns the merged
// @Description  view. Tasks missing required fields are dropped, not fatal.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     CookieAuth
// @Param        body  body      dto.SyncRequest  true  "Client snapshot"
// @Success      200   {object}  dto.SyncResponse
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /tasks/sync [post]
func (h *TaskHandler) Sync(c *gin.Context) {
	var req dto.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	client := make([]dom.Task, 0, len(req.Tasks))
	dropped := 0
	for _, p := range req.Tasks {
		t := p.ToDomain()
		if t.Validate() != nil {
			dropped++
			continue
		}
		client = append(client, t.Normalize())
	}

	res, err := h.svc.SyncApply(c.Request.Context(), auth.UserIDFromContext(c), client)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.SyncResponse{
		Tasks:   dto.ResponsesFromDomain(res.Merged),
		Created: res.Created,
		Updated: res.Updated,
		Dropped: dropped,
	})
}
