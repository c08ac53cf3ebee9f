package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"taskflow/internal/apiclient"
	"taskflow/internal/domain"
)

// Store is the slice of the local task store the syncer needs.
type Store interface {
	Load() ([]domain.Task, error)
	Save(tasks []domain.Task) error
}

// API is the slice of the board API client the syncer needs.
type API interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, t domain.Task) error
}

// Config tunes the push phase. Zero values get sensible defaults.
type Config struct {
	// PushConcurrency bounds how many per-task pushes run at once.
	PushConcurrency int
	// PushTimeout bounds a single push attempt.
	PushTimeout time.Duration
	// Retries is how many extra attempts a retryable push failure gets.
	Retries int
	// RetryWait is the sleep before the first retry; it doubles each attempt.
	RetryWait time.Duration
}

func (c Config) withDefaults() Config {
	if c.PushConcurrency <= 0 {
		c.PushConcurrency = 4
	}
	if c.PushTimeout <= 0 {
		c.PushTimeout = 10 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryWait <= 0 {
		c.RetryWait = time.Second
	}
	return c
}

// PushFailure records one task whose server push did not go through.
// The merged local snapshot is already persisted by then; the push can be
// retried on the next sync without any repair step.
type PushFailure struct {
	TaskID string
	Op     string // "create" or "update"
	Err    error
}

// Report is the outcome of one Sync run.
type Report struct {
	// Offline is set when the server snapshot could not be fetched at all.
	// Local tasks stay authoritative and nothing is pushed.
	Offline      bool
	OfflineCause error

	Merged   int
	Created  int
	Updated  int
	Failures []PushFailure
}

// Syncer drives one full client-side reconciliation: load local, fetch
// server, merge, persist merged locally, push pending writes.
type Syncer struct {
	store Store
	api   API
	cfg   Config
}

func New(store Store, api API, cfg Config) *Syncer {
	return &Syncer{store: store, api: api, cfg: cfg.withDefaults()}
}

// Sync runs the two-phase write described by the reconciliation protocol:
// the merged snapshot is written through to the local store synchronously,
// then the pending server writes fan out concurrently. Per-task push
// failures land in the report and never roll back the merged snapshot.
//
// A failed server fetch flips the report to offline and leaves the local
// store untouched; the returned error is nil because offline is a normal,
// retryable condition for this client.
func (s *Syncer) Sync(ctx context.Context) (Report, error) {
	local, err := s.store.Load()
	if err != nil {
		return Report{}, err
	}

	server, err := s.api.ListTasks(ctx)
	if err != nil {
		return Report{Offline: true, OfflineCause: err, Merged: len(local)}, nil
	}

	res := Reconcile(local, server)
	if err := s.store.Save(res.Merged); err != nil {
		return Report{}, err
	}

	rep := Report{
		Merged:  len(res.Merged),
		Created: len(res.ToCreate),
		Updated: len(res.ToUpdate),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.PushConcurrency)

	push := func(op string, t domain.Task, fn func(context.Context, domain.Task) error) {
		g.Go(func() error {
			if err := s.pushWithRetry(gctx, t, fn); err != nil {
				mu.Lock()
				rep.Failures = append(rep.Failures, PushFailure{TaskID: t.ID, Op: op, Err: err})
				if op == "create" {
					rep.Created--
				} else {
					rep.Updated--
				}
				mu.Unlock()
			}
			// Push failures are per task and never cancel the group.
			return nil
		})
	}
	for _, t := range res.ToCreate {
		push("create", t, s.api.CreateTask)
	}
	for _, t := range res.ToUpdate {
		push("update", t, s.api.UpdateTask)
	}
	_ = g.Wait()

	return rep, nil
}

// pushWithRetry runs one idempotent push with a per-attempt timeout and a
// doubling backoff. Non-retryable transport errors fail immediately.
func (s *Syncer) pushWithRetry(ctx context.Context, t domain.Task, fn func(context.Context, domain.Task) error) error {
	wait := s.cfg.RetryWait
	var lastErr error
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		actx, cancel := context.WithTimeout(ctx, s.cfg.PushTimeout)
		err := fn(actx, t)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		var te *apiclient.TransportError
		if errors.As(err, &te) && !te.Retryable() {
			return err
		}
	}
	return lastErr
}
