package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"taskflow/internal/cache"
	dom "taskflow/internal/domain"
	"taskflow/internal/repo"
	"taskflow/internal/syncer"
	"taskflow/internal/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrIDConflict = errors.New("task id already in use")
)

// TaskService owns the server-side task rules: validation and defaulting on
// the way in, cache invalidation on every write, and the batch sync apply.
type TaskService struct {
	repo  repo.TaskRepo
	cache *cache.TaskCache
	sf    singleflight.Group
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(r repo.TaskRepo, c *cache.TaskCache) *TaskService {
	return &TaskService{repo: r, cache: c}
}

// TaskPatch is a partial update; nil fields are left untouched.
// ClearDueDate distinguishes "clear the due date" from "keep it".
type TaskPatch struct {
	Title        *string
	Description  *string
	Category     *string
	Priority     *dom.Priority
	Status       *dom.Status
	DueDate      *time.Time
	ClearDueDate bool
}

// SyncResult is what the batch sync endpoint reports back.
type SyncResult struct {
	Merged  []dom.Task
	Created int
	Updated int
}

// Create inserts a new task. An empty id gets a generated uuid; a supplied
// id that is already taken is a conflict.
func (s *TaskService) Create(ctx context.Context, userID int64, t dom.Task) (dom.Task, error) {
	t = t.Normalize()
	t.UserID = userID
	if strings.TrimSpace(t.Title) == "" {
		return dom.Task{}, dom.ErrInvalidTask
	}
	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}

	out, err := s.repo.Create(ctx, t)
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.Task{}, ErrIDConflict
		}
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, userID)
	return out, nil
}

// Upsert writes the full task, preserving the caller's id and timestamps.
// This is the write behind PUT /tasks/{id} and every sync apply.
func (s *TaskService) Upsert(ctx context.Context, userID int64, t dom.Task) (dom.Task, error) {
	t = t.Normalize()
	t.UserID = userID
	if err := t.Validate(); err != nil {
		return dom.Task{}, err
	}

	out, err := s.repo.Upsert(ctx, t)
	if err != nil {
		// The upsert's user guard turns a cross-user id collision into no
		// returned row.
		if errors.Is(err, pgx.ErrNoRows) || utils.IsPGUniqueViolation(err) {
			return dom.Task{}, ErrIDConflict
		}
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, userID)
	return out, nil
}

// List returns the user's tasks, optionally filtered. Unfiltered and
// filtered listings are cached separately; singleflight keeps concurrent
// misses from stampeding the database.
func (s *TaskService) List(ctx context.Context, userID int64, f repo.ListFilter) ([]dom.Task, error) {
	if s.cache == nil {
		return s.repo.List(ctx, userID, f)
	}
	if f.Zero() {
		return s.cachedList(ctx, "board:"+strconv.FormatInt(userID, 10),
			func() ([]dom.Task, error) { return s.cache.GetBoard(ctx, userID) },
			func(list []dom.Task) error { return s.cache.SetBoard(ctx, userID, list) },
			func() ([]dom.Task, error) { return s.repo.List(ctx, userID, f) },
		)
	}
	fk := filterKey(f)
	return s.cachedList(ctx, "query:"+strconv.FormatInt(userID, 10)+":"+fk,
		func() ([]dom.Task, error) { return s.cache.GetQuery(ctx, userID, fk) },
		func(list []dom.Task) error { return s.cache.SetQuery(ctx, userID, fk, list) },
		func() ([]dom.Task, error) { return s.repo.List(ctx, userID, f) },
	)
}

// Overdue returns tasks past their due date and not done.
func (s *TaskService) Overdue(ctx context.Context, userID int64) ([]dom.Task, error) {
	if s.cache == nil {
		return s.repo.Overdue(ctx, userID)
	}
	return s.cachedList(ctx, "overdue:"+strconv.FormatInt(userID, 10),
		func() ([]dom.Task, error) { return s.cache.GetOverdue(ctx, userID) },
		func(list []dom.Task) error { return s.cache.SetOverdue(ctx, userID, list) },
		func() ([]dom.Task, error) { return s.repo.Overdue(ctx, userID) },
	)
}

func (s *TaskService) GetByID(ctx context.Context, userID int64, id string) (dom.Task, error) {
	t, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	return t, nil
}

// Update applies a partial update and bumps updated_at.
func (s *TaskService) Update(ctx context.Context, userID int64, id string, p TaskPatch) (dom.Task, error) {
	existing, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	patch := existing
	if p.Title != nil {
		patch.Title = strings.TrimSpace(*p.Title)
		if patch.Title == "" {
			return dom.Task{}, dom.ErrInvalidTask
		}
	}
	if p.Description != nil {
		patch.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		patch.Category = strings.TrimSpace(*p.Category)
	}
	if p.Priority != nil {
		patch.Priority = *p.Priority
	}
	if p.Status != nil {
		patch.Status = *p.Status
	}
	if p.ClearDueDate {
		patch.DueDate = nil
	} else if p.DueDate != nil {
		patch.DueDate = p.DueDate
	}

	t, err := s.repo.Update(ctx, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

// SetStatus moves a task between board columns.
func (s *TaskService) SetStatus(ctx context.Context, userID int64, id string, st dom.Status) (dom.Task, error) {
	t, err := s.repo.SetStatus(ctx, userID, id, st)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	s.invalidateCache(ctx, userID)
	return t, nil
}

// Delete removes the task for good. Deleting an absent task is a not-found.
func (s *TaskService) Delete(ctx context.Context, userID int64, id string) error {
	deleted, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.invalidateCache(ctx, userID)
	return nil
}

// SyncApply is the server half of the offline-first protocol: reconcile the
// client's snapshot against the stored set, then apply the pending writes
// inside the store via idempotent upserts. The whole batch can be retried
// safely after a partial failure.
func (s *TaskService) SyncApply(ctx context.Context, userID int64, client []dom.Task) (SyncResult, error) {
	server, err := s.repo.List(ctx, userID, repo.ListFilter{})
	if err != nil {
		return SyncResult{}, err
	}

	res := syncer.Reconcile(client, server)
	apply := func(tasks []dom.Task) error {
		for _, t := range tasks {
			t.UserID = userID
			if _, err := s.repo.Upsert(ctx, t.Normalize()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := apply(res.ToCreate); err != nil {
		return SyncResult{}, err
	}
	if err := apply(res.ToUpdate); err != nil {
		return SyncResult{}, err
	}
	s.invalidateCache(ctx, userID)

	return SyncResult{
		Merged:  res.Merged,
		Created: len(res.ToCreate),
		Updated: len(res.ToUpdate),
	}, nil
}

// cachedList is the read-through path shared by List and Overdue.
func (s *TaskService) cachedList(ctx context.Context, key string,
	get func() ([]dom.Task, error),
	set func([]dom.Task) error,
	load func() ([]dom.Task, error),
) ([]dom.Task, error) {
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if list, err := get(); err == nil && list != nil {
			return list, nil
		}
		list, err := load()
		if err != nil {
			return nil, err
		}
		_ = set(list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Task), nil
}

func (s *TaskService) invalidateCache(ctx context.Context, userID int64) {
	if s.cache != nil {
		_ = s.cache.InvalidateAll(ctx, userID)
	}
}

func filterKey(f repo.ListFilter) string {
	return strings.ToLower(string(f.Status) + "|" + f.Category + "|" + strings.TrimSpace(f.Query))
}
