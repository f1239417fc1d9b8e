package account

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRepository_CreateAndGetByID(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	acct := seedTestAccount(t, repo, "alice@example.com", false)
	if acct.ID == "" {
		t.Fatal("Create() should generate an ID")
	}

	got, err := repo.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "alice@example.com")
	}
	if got.IsStaff {
		t.Error("IsStaff should be false")
	}
	if !got.IsActive {
		t.Error("IsActive should be true")
	}
	if got.FailedLoginAttempts != 0 {
		t.Errorf("FailedLoginAttempts = %d, want 0", got.FailedLoginAttempts)
	}
	if got.IsLocked {
		t.Error("new account should not be locked")
	}
	if got.PasswordHash == "" {
		t.Error("PasswordHash should be populated")
	}
}

func TestRepository_GetByEmail_CaseInsensitive(t *testing.T) {
	repo := NewRepository(testDB(t))

	acct := seedTestAccount(t, repo, "bob@example.com", false)

	got, err := repo.GetByEmail(context.Background(), "BOB@Example.COM")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != acct.ID {
		t.Errorf("ID = %q, want %q", got.ID, acct.ID)
	}
}

func TestRepository_GetByEmail_NotFound(t *testing.T) {
	repo := NewRepository(testDB(t))

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestRepository_DuplicateEmail(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	seedTestAccount(t, repo, "dup@example.com", false)

	hash, _ := HashPassword("Password1")
	err := repo.Create(ctx, &Account{
		Email:        "DUP@example.com",
		FirstName:    "Other",
		LastName:     "User",
		PasswordHash: hash,
		IsActive:     true,
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("error = %v, want ErrEmailExists", err)
	}
}

func TestRepository_Update(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	acct := seedTestAccount(t, repo, "carol@example.com", false)

	acct.FirstName = "Carol"
	acct.LastName = "Jones"
	acct.IsStaff = true
	if err := repo.Update(ctx, acct); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.FirstName != "Carol" || got.LastName != "Jones" {
		t.Errorf("name = %q %q, want Carol Jones", got.FirstName, got.LastName)
	}
	if !got.IsStaff {
		t.Error("IsStaff should be true after update")
	}
	if got.Role() != RoleAdmin {
		t.Errorf("Role() = %q, want %q", got.Role(), RoleAdmin)
	}
}

func TestRepository_UpdatePassword(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	acct := seedTestAccount(t, repo, "dave@example.com", false)

	newHash, err := HashPassword("NewPassword2")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := repo.UpdatePassword(ctx, acct.ID, newHash); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, err := repo.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	ok, err := VerifyPassword("NewPassword2", got.PasswordHash)
	if err != nil || !ok {
		t.Errorf("VerifyPassword() = %v, %v, want true, nil", ok, err)
	}
}

func TestRepository_RecordLoginFailure_TripsLockAtThreshold(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	acct := seedTestAccount(t, repo, "eve@example.com", false)
	lockUntil := time.Now().Add(30 * time.Minute)

	for i := 1; i <= 4; i++ {
		locked, attempts, err := repo.RecordLoginFailure(ctx, acct.ID, 5, lockUntil)
		if err != nil {
			t.Fatalf("RecordLoginFailure() error = %v", err)
		}
		if locked {
			t.Fatalf("attempt %d should not lock", i)
		}
		if attempts != i {
			t.Errorf("attempts = %d, want %d", attempts, i)
		}
	}

	locked, attempts, err := repo.RecordLoginFailure(ctx, acct.ID, 5, lockUntil)
	if err != nil {
		t.Fatalf("RecordLoginFailure() error = %v", err)
	}
	if !locked {
		t.Fatal("fifth failure should trip the lock")
	}
	if attempts != 5 {
		t.Errorf("attempts = %d, want 5", attempts)
	}

	got, err := repo.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.IsLocked {
		t.Error("IsLocked should be true")
	}
	if got.LockoutUntil == nil {
		t.Fatal("LockoutUntil should be set")
	}
}

func TestRepository_RecordLoginSuccess_ResetsState(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	acct := seedTestAccount(t, repo, "frank@example.com", false)
	lockUntil := time.Now().Add(30 * time.Minute)

	for i := 0; i < 5; i++ {
		if _, _, err := repo.RecordLoginFailure(ctx, acct.ID, 5, lockUntil); err != nil {
			t.Fatalf("RecordLoginFailure() error = %v", err)
		}
	}

	loginAt := time.Now().UTC().Truncate(time.Second)
	if err := repo.RecordLoginSuccess(ctx, acct.ID, loginAt); err != nil {
		t.Fatalf("RecordLoginSuccess() error = %v", err)
	}

	got, err := repo.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.FailedLoginAttempts != 0 {
		t.Errorf("FailedLoginAttempts = %d, want 0", got.FailedLoginAttempts)
	}
	if got.IsLocked {
		t.Error("IsLocked should be cleared")
	}
	if got.LockoutUntil != nil {
		t.Error("LockoutUntil should be cleared")
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(loginAt) {
		t.Errorf("LastLogin = %v, want %v", got.LastLogin, loginAt)
	}
}

func TestRepository_ListAndCount(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	seedTestAccount(t, repo, "one@example.com", false)
	seedTestAccount(t, repo, "two@example.com", true)

	accounts, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("List() returned %d accounts, want 2", len(accounts))
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(testDB(t))
	ctx := context.Background()

	acct := seedTestAccount(t, repo, "gone@example.com", false)

	if err := repo.Delete(ctx, acct.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, acct.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}

	if err := repo.Delete(ctx, "acc-missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrAccountNotFound", err)
	}
}
