package task

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/taskdeck/taskdeck-core/internal/account"
	"github.com/taskdeck/taskdeck-core/internal/infrastructure/database"
	"github.com/taskdeck/taskdeck-core/internal/policy"
)

// testDB creates a temporary SQLite database with the accounts and tasks
// schema applied.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "task-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schemaSQL := `
		CREATE TABLE accounts (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			is_staff INTEGER NOT NULL DEFAULT 0,
			is_superuser INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			failed_login_attempts INTEGER NOT NULL DEFAULT 0,
			is_locked INTEGER NOT NULL DEFAULT 0,
			lockout_until TEXT,
			last_login TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 0,
			is_confirmed_by_admin INTEGER NOT NULL DEFAULT 0,
			owner_id TEXT NOT NULL,
			time_spent_minutes INTEGER,
			work_description TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (owner_id) REFERENCES accounts(id) ON DELETE CASCADE
		) STRICT;
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	return db
}

// seedAccount creates an account and returns it with its policy actor.
func seedAccount(t *testing.T, db *database.DB, email string, isStaff bool) (*account.Account, policy.Actor) {
	t.Helper()

	repo := account.NewRepository(db.DB)
	acct := &account.Account{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "x",
		IsStaff:      isStaff,
		IsActive:     true,
	}
	if err := repo.Create(context.Background(), acct); err != nil {
		t.Fatalf("seeding account: %v", err)
	}
	return acct, policy.Actor{AccountID: acct.ID, Role: acct.Role()}
}

// seedTask creates a task owned by the given account.
func seedTask(t *testing.T, repo *SQLiteRepository, ownerID, title string) *Task {
	t.Helper()

	task := &Task{
		Title:       title,
		Description: "seeded",
		OwnerID:     ownerID,
	}
	if err := repo.Create(context.Background(), task); err != nil {
		t.Fatalf("seeding task: %v", err)
	}
	return task
}
