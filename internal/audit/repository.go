// Package audit records the lockout trail: login failures that trip a lock
// and the stale-lock retries that follow. It is deliberately narrow; no
// general activity auditing lives here.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lockout trail actions.
const (
	ActionAccountLocked  = "account_locked"
	ActionStaleLockRetry = "stale_lock_retry"
)

// Event is a single lockout trail entry.
type Event struct {
	ID        string         `json:"id"`
	AccountID string         `json:"account_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Repository defines the interface for lockout event persistence.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	ListByAccount(ctx context.Context, accountID string, limit int) ([]Event, error)
}

// SQLiteRepository stores lockout events in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new lockout event repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a lockout event. ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = "lck-" + uuid.NewString()[:8]
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var details any
	if event.Details != nil {
		b, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("marshalling event details: %w", err)
		}
		details = string(b)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lockout_events (id, account_id, action, details, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.AccountID, event.Action, details,
		event.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting lockout event: %w", err)
	}
	return nil
}

// defaultListLimit caps ListByAccount when no limit is given.
const defaultListLimit = 50

// ListByAccount returns the most recent lockout events for an account.
func (r *SQLiteRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, action, details, created_at
		 FROM lockout_events WHERE account_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying lockout events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var details sql.NullString
		var createdAt string

		if err := rows.Scan(&e.ID, &e.AccountID, &e.Action, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning lockout event: %w", err)
		}

		if details.Valid && details.String != "" {
			var parsed map[string]any
			if json.Unmarshal([]byte(details.String), &parsed) == nil {
				e.Details = parsed
			}
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lockout events: %w", err)
	}

	return events, nil
}
