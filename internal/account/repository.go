package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for account persistence.
type Repository interface {
	Create(ctx context.Context, acct *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	Update(ctx context.Context, acct *Account) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (locked bool, attempts int, err error)
	RecordLoginSuccess(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed account repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const accountColumns = `id, email, first_name, last_name, password_hash,
	is_staff, is_superuser, is_active,
	failed_login_attempts, is_locked, lockout_until,
	last_login, created_at, updated_at`

// Create inserts a new account. The ID is generated if empty and the email
// is normalized before storage.
func (r *SQLiteRepository) Create(ctx context.Context, acct *Account) error {
	if acct.ID == "" {
		acct.ID = "acc-" + uuid.NewString()[:8]
	}
	acct.Email = NormalizeEmail(acct.Email)

	now := time.Now().UTC().Truncate(time.Second)
	acct.CreatedAt = now
	acct.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, first_name, last_name, password_hash,
		 is_staff, is_superuser, is_active,
		 failed_login_attempts, is_locked, lockout_until, last_login,
		 created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acct.ID, acct.Email, acct.FirstName, acct.LastName, acct.PasswordHash,
		boolToInt(acct.IsStaff), boolToInt(acct.IsSuperuser), boolToInt(acct.IsActive),
		acct.FailedLoginAttempts, boolToInt(acct.IsLocked),
		nullTime(acct.LockoutUntil), nullTime(acct.LastLogin),
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its unique ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	return scanAccount(row)
}

// GetByEmail retrieves an account by its normalized email address.
func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email = ?", NormalizeEmail(email))
	return scanAccount(row)
}

// List returns all accounts ordered by creation date.
func (r *SQLiteRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}

// Update modifies an account's profile fields and role flags
// (email, first_name, last_name, is_staff, is_superuser, is_active).
// Lockout state and the credential hash have dedicated methods.
func (r *SQLiteRepository) Update(ctx context.Context, acct *Account) error {
	acct.Email = NormalizeEmail(acct.Email)
	acct.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET email = ?, first_name = ?, last_name = ?,
		 is_staff = ?, is_superuser = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		acct.Email, acct.FirstName, acct.LastName,
		boolToInt(acct.IsStaff), boolToInt(acct.IsSuperuser), boolToInt(acct.IsActive),
		acct.UpdatedAt.Format(time.RFC3339), acct.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating account: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdatePassword replaces an account's credential hash.
func (r *SQLiteRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?",
		passwordHash, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// RecordLoginFailure increments the failed-login counter inside a single
// transaction, tripping the lock when the counter reaches threshold. The
// read-modify-write is transactional so two concurrent failures for the same
// account cannot both observe the pre-threshold count and miss the lock.
func (r *SQLiteRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (locked bool, attempts int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("beginning failure transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	err = tx.QueryRowContext(ctx,
		"SELECT failed_login_attempts FROM accounts WHERE id = ?", id,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, 0, ErrAccountNotFound
		}
		return false, 0, fmt.Errorf("reading failure count: %w", err)
	}

	attempts++
	locked = attempts >= threshold

	if locked {
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET failed_login_attempts = ?, is_locked = 1,
			 lockout_until = ?, updated_at = ? WHERE id = ?`,
			attempts, lockUntil.UTC().Format(time.RFC3339),
			time.Now().UTC().Format(time.RFC3339), id,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			"UPDATE accounts SET failed_login_attempts = ?, updated_at = ? WHERE id = ?",
			attempts, time.Now().UTC().Format(time.RFC3339), id,
		)
	}
	if err != nil {
		return false, 0, fmt.Errorf("recording login failure: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("committing login failure: %w", err)
	}
	return locked, attempts, nil
}

// RecordLoginSuccess zeroes the failure counter, clears any lock, and stamps
// last_login. A successful credential check means the account is usable now.
func (r *SQLiteRepository) RecordLoginSuccess(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET failed_login_attempts = 0, is_locked = 0,
		 lockout_until = NULL, last_login = ?, updated_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("recording login success: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Delete removes an account. Owned tasks cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Count returns the total number of accounts.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting accounts: %w", err)
	}
	return count, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanAccount scans a full account row.
func scanAccount(s scanner) (*Account, error) {
	var a Account
	var isStaff, isSuperuser, isActive, isLocked int
	var lockoutUntil, lastLogin sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.PasswordHash,
		&isStaff, &isSuperuser, &isActive,
		&a.FailedLoginAttempts, &isLocked, &lockoutUntil,
		&lastLogin, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}

	a.IsStaff = isStaff != 0
	a.IsSuperuser = isSuperuser != 0
	a.IsActive = isActive != 0
	a.IsLocked = isLocked != 0
	a.LockoutUntil = parseNullTime(lockoutUntil)
	a.LastLogin = parseNullTime(lastLogin)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &a, nil
}

// Helper functions.

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
