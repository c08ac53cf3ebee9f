package repo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	dom "taskflow/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ListFilter narrows a board listing. Zero value means "everything".
type ListFilter struct {
	Status   dom.Status
	Category string
	Query    string // substring match on title/description
}

// Zero reports whether the filter selects the whole board.
func (f ListFilter) Zero() bool {
	return f.Status == "" && f.Category == "" && f.Query == ""
}

type TaskRepo interface {
	Create(ctx context.Context, t dom.Task) (dom.Task, error)
	// Upsert writes the full task keyed by id, preserving the caller's
	// timestamps. It is the idempotent write behind PUT and batch sync.
	Upsert(ctx context.Context, t dom.Task) (dom.Task, error)
	GetByID(ctx context.Context, userID int64, id string) (dom.Task, error)
	List(ctx context.Context, userID int64, f ListFilter) ([]dom.Task, error)
	Update(ctx context.Context, t dom.Task) (dom.Task, error)
	Delete(ctx context.Context, userID int64, id string) (bool, error)
	SetStatus(ctx context.Context, userID int64, id string, st dom.Status) (dom.Task, error)
	Overdue(ctx context.Context, userID int64) ([]dom.Task, error)
}

type PGTaskRepo struct {
	db *pgxpool.Pool
}

func NewPGTaskRepo(db *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

const taskColumns = `id, user_id, title, description, category, priority, status, due_date, created_at, updated_at`

func (r *PGTaskRepo) Create(ctx context.Context, t dom.Task) (dom.Task, error) {
	query := `
		INSERT INTO tasks (id, user_id, title, description, category, priority, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + taskColumns
	row := r.db.QueryRow(ctx, query,
		t.ID, t.UserID, t.Title, t.Description, t.Category, t.Priority, t.Status, t.DueDate)
	return scanTask(row)
}

func (r *PGTaskRepo) Upsert(ctx context.Context, t dom.Task) (dom.Task, error) {
	// The conflict update is guarded by user_id so a client can never
	// overwrite another user's task by reusing its id; the guard makes the
	// RETURNING row vanish, which surfaces as pgx.ErrNoRows.
	// updated_at keeps the greater of both sides: client clocks can run
	// ahead and the column must never move backwards.
	query := `
		INSERT INTO tasks (id, user_id, title, description, category, priority, status, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			priority = EXCLUDED.priority,
			status = EXCLUDED.status,
			due_date = EXCLUDED.due_date,
			updated_at = GREATEST(tasks.updated_at, EXCLUDED.updated_at)
		WHERE tasks.user_id = EXCLUDED.user_id
		RETURNING ` + taskColumns
	row := r.db.QueryRow(ctx, query,
		t.ID, t.UserID, t.Title, t.Description, t.Category, t.Priority, t.Status,
		t.DueDate, t.CreatedAt, t.UpdatedAt)
	return scanTask(row)
}

func (r *PGTaskRepo) GetByID(ctx context.Context, userID int64, id string) (dom.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 AND id = $2`
	return scanTask(r.db.QueryRow(ctx, query, userID, id))
}

func (r *PGTaskRepo) List(ctx context.Context, userID int64, f ListFilter) ([]dom.Task, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`)
	args := []any{userID}
	if f.Status != "" {
		args = append(args, f.Status)
		b.WriteString(` AND status = $` + strconv.Itoa(len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		b.WriteString(` AND category = $` + strconv.Itoa(len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		n := strconv.Itoa(len(args))
		b.WriteString(` AND (title ILIKE $` + n + ` OR description ILIKE $` + n + `)`)
	}
	b.WriteString(` ORDER BY created_at DESC`)

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *PGTaskRepo) Update(ctx context.Context, t dom.Task) (dom.Task, error) {
	query := `
		UPDATE tasks
		SET title = $3, description = $4, category = $5, priority = $6, status = $7,
		    due_date = $8, updated_at = GREATEST(NOW(), updated_at)
		WHERE user_id = $1 AND id = $2
		RETURNING ` + taskColumns
	row := r.db.QueryRow(ctx, query,
		t.UserID, t.ID, t.Title, t.Description, t.Category, t.Priority, t.Status, t.DueDate)
	return scanTask(row)
}

// Delete removes the row for good; the board keeps no tombstones.
func (r *PGTaskRepo) Delete(ctx context.Context, userID int64, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGTaskRepo) SetStatus(ctx context.Context, userID int64, id string, st dom.Status) (dom.Task, error) {
	query := `
		UPDATE tasks SET status = $3, updated_at = GREATEST(NOW(), updated_at)
		WHERE user_id = $1 AND id = $2
		RETURNING ` + taskColumns
	return scanTask(r.db.QueryRow(ctx, query, userID, id, st))
}

func (r *PGTaskRepo) Overdue(ctx context.Context, userID int64) ([]dom.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND status <> 'done' AND due_date IS NOT NULL AND due_date < NOW()
		ORDER BY due_date ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (dom.Task, error) {
	var t dom.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Category,
		&t.Priority, &t.Status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return dom.Task{}, err
	}
	return t, nil
}

func scanTasks(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]dom.Task, error) {
	var list []dom.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
