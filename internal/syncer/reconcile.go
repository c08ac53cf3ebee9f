// Package syncer implements the offline-first reconciliation between a
// client-held task set and the server-held task set: a pure last-write-wins
// merge keyed by task id, plus the orchestration that persists the merged
// snapshot locally and pushes client-side changes to the API.
package syncer

import "taskflow/internal/domain"

// Result of reconciling a local task set against a server task set.
//
// Merged covers the union of ids from both inputs, one entry per id.
// ToCreate and ToUpdate are the pending server writes: tasks that exist only
// locally, and tasks where the local copy is strictly newer. Applying them
// is the caller's job and may fail per task without invalidating Merged.
type Result struct {
	Merged   []domain.Task
	ToCreate []domain.Task
	ToUpdate []domain.Task
}

// Reconcile merges two task snapshots keyed by id, resolving conflicts by
// UpdatedAt recency. Ties resolve to the server copy, so a client whose
// clock agrees with the server does not re-push unchanged tasks.
//
// The function is pure: no clock, no I/O, identical inputs give identical
// outputs. Duplicate ids within one input are tolerated, last seen wins.
// Merged keeps local input order first, then server-only tasks in server
// order, so the client's board order stays stable across syncs.
func Reconcile(local, server []domain.Task) Result {
	local = dedupe(local)
	server = dedupe(server)

	serverByID := make(map[string]domain.Task, len(server))
	for _, t := range server {
		serverByID[t.ID] = t
	}

	var res Result
	inLocal := make(map[string]bool, len(local))
	for _, lt := range local {
		inLocal[lt.ID] = true
		st, onServer := serverByID[lt.ID]
		switch {
		case !onServer:
			res.Merged = append(res.Merged, lt)
			res.ToCreate = append(res.ToCreate, lt)
		case lt.UpdatedAt.After(st.UpdatedAt):
			res.Merged = append(res.Merged, lt)
			res.ToUpdate = append(res.ToUpdate, lt)
		default:
			res.Merged = append(res.Merged, st)
		}
	}

	for _, st := range server {
		if !inLocal[st.ID] {
			res.Merged = append(res.Merged, st)
		}
	}
	return res
}

// dedupe collapses duplicate ids to a single entry: the first occurrence
// keeps its position, the last occurrence supplies the value.
func dedupe(tasks []domain.Task) []domain.Task {
	if len(tasks) < 2 {
		return tasks
	}
	latest := make(map[string]domain.Task, len(tasks))
	order := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if _, seen := latest[t.ID]; !seen {
			order = append(order, t.ID)
		}
		latest[t.ID] = t
	}
	if len(order) == len(tasks) {
		return tasks
	}
	out := make([]domain.Task, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out
}
