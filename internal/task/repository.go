package task

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-core/internal/infrastructure/database"
)

// Filter narrows a task listing. Zero values mean "no constraint".
type Filter struct {
	// OwnerID restricts results to a single owner.
	OwnerID string

	// Search matches title, description, or owner email, case-insensitive.
	Search string
}

// Repository provides task persistence.
type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter Filter) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository on the shared SQLite handle.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a task repository.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// taskColumns lists the joined columns every task query selects, in scan order.
const taskColumns = `t.id, t.title, t.description, t.completed, t.is_confirmed_by_admin,
	t.owner_id, a.email, trim(a.first_name || ' ' || a.last_name),
	t.time_spent_minutes, t.work_description, t.created_at, t.updated_at`

// Create inserts a task. Generates an ID and timestamps when unset.
func (r *SQLiteRepository) Create(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = "tsk-" + uuid.New().String()[:8]
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, completed, is_confirmed_by_admin,
			owner_id, time_spent_minutes, work_description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, boolToInt(t.Completed), boolToInt(t.IsConfirmedByAdmin),
		t.OwnerID, nullInt(t.TimeSpentMinutes), t.WorkDescription,
		t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID fetches a task with its owner details joined in.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks t
		JOIN accounts a ON a.id = t.owner_id
		WHERE t.id = ?`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return t, nil
}

// List returns tasks matching the filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]*Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		JOIN accounts a ON a.id = t.owner_id
		WHERE 1=1`
	var args []any

	if filter.OwnerID != "" {
		query += " AND t.owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.Search != "" {
		query += ` AND (t.title LIKE ? ESCAPE '\' OR t.description LIKE ? ESCAPE '\' OR a.email LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(filter.Search) + "%"
		args = append(args, pattern, pattern, pattern)
	}
	// created_at has second precision; rowid breaks ties in insertion order.
	query += " ORDER BY t.created_at DESC, t.rowid DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	tasks := make([]*Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// Update persists mutable task fields and stamps updated_at.
func (r *SQLiteRepository) Update(ctx context.Context, t *Task) error {
	t.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, completed = ?, is_confirmed_by_admin = ?,
			owner_id = ?, time_spent_minutes = ?, work_description = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, boolToInt(t.Completed), boolToInt(t.IsConfirmedByAdmin),
		t.OwnerID, nullInt(t.TimeSpentMinutes), t.WorkDescription,
		t.UpdatedAt.Format(time.RFC3339), t.ID)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", t.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// Delete removes a task.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*Task, error) {
	var (
		t                      Task
		completed, confirmed   int
		timeSpent              sql.NullInt64
		createdRaw, updatedRaw string
	)
	err := s.Scan(&t.ID, &t.Title, &t.Description, &completed, &confirmed,
		&t.OwnerID, &t.OwnerEmail, &t.OwnerName,
		&timeSpent, &t.WorkDescription, &createdRaw, &updatedRaw)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	t.IsConfirmedByAdmin = confirmed != 0
	if timeSpent.Valid {
		minutes := int(timeSpent.Int64)
		t.TimeSpentMinutes = &minutes
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339, createdRaw); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339, updatedRaw); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// escapeLike escapes LIKE wildcards so a search term matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
