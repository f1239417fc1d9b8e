package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck-core/internal/account"
	"github.com/taskdeck/taskdeck-core/internal/audit"
)

func TestAuthenticate_Success(t *testing.T) {
	clock := newFakeClock()
	svc, accounts, _, acct := testService(t, clock)
	ctx := context.Background()

	session, got, err := svc.Authenticate(ctx, acct.Email, testPassword)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("session should carry both tokens")
	}
	if session.TokenType != "Bearer" {
		t.Errorf("TokenType = %q, want Bearer", session.TokenType)
	}
	if got.LastLogin == nil || !got.LastLogin.Equal(clock.Now()) {
		t.Errorf("LastLogin = %v, want %v", got.LastLogin, clock.Now())
	}

	stored, err := accounts.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.LastLogin == nil {
		t.Error("last_login should be persisted")
	}
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	svc, _, _, _ := testService(t, newFakeClock())

	_, _, err := svc.Authenticate(context.Background(), "nobody@example.com", testPassword)
	if !errors.Is(err, account.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	svc, accounts, _, acct := testService(t, newFakeClock())
	ctx := context.Background()

	_, _, err := svc.Authenticate(ctx, acct.Email, "Wrong1Password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}

	stored, err := accounts.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.FailedLoginAttempts != 1 {
		t.Errorf("FailedLoginAttempts = %d, want 1", stored.FailedLoginAttempts)
	}
	if stored.IsLocked {
		t.Error("a single failure should not lock the account")
	}
}

func TestAuthenticate_LocksAtThreshold(t *testing.T) {
	clock := newFakeClock()
	svc, accounts, trail, acct := testService(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := svc.Authenticate(ctx, acct.Email, "Wrong1Password")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: error = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	stored, err := accounts.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !stored.IsLocked {
		t.Fatal("fifth failure should lock the account")
	}
	if stored.LockoutUntil == nil {
		t.Fatal("LockoutUntil should be set")
	}
	want := clock.Now().Add(30 * time.Minute)
	if !stored.LockoutUntil.Equal(want) {
		t.Errorf("LockoutUntil = %v, want %v", stored.LockoutUntil, want)
	}

	events, err := trail.ListByAccount(ctx, acct.ID, 0)
	if err != nil {
		t.Fatalf("ListByAccount() error = %v", err)
	}
	found := false
	for _, e := range events {
		if e.Action == audit.ActionAccountLocked {
			found = true
		}
	}
	if !found {
		t.Error("lock trip should be recorded in the lockout trail")
	}
}

func TestAuthenticate_ActiveLock_NoSideEffects(t *testing.T) {
	clock := newFakeClock()
	svc, accounts, _, acct := testService(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Authenticate(ctx, acct.Email, "Wrong1Password") //nolint:errcheck // failures are the point
	}

	// Even the correct password is rejected while the lock is active,
	// and the failure counter must not move.
	_, _, err := svc.Authenticate(ctx, acct.Email, testPassword)
	if !errors.Is(err, ErrLockedOut) {
		t.Fatalf("error = %v, want ErrLockedOut", err)
	}
	_, _, err = svc.Authenticate(ctx, acct.Email, "Wrong1Password")
	if !errors.Is(err, ErrLockedOut) {
		t.Fatalf("error = %v, want ErrLockedOut", err)
	}

	stored, err := accounts.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.FailedLoginAttempts != 5 {
		t.Errorf("FailedLoginAttempts = %d, want 5 (no movement while locked)", stored.FailedLoginAttempts)
	}
}

func TestAuthenticate_StaleLock_CorrectPasswordClears(t *testing.T) {
	clock := newFakeClock()
	svc, accounts, trail, acct := testService(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Authenticate(ctx, acct.Email, "Wrong1Password") //nolint:errcheck // failures are the point
	}

	// Let the lock expire. It is not auto-cleared; the next attempt
	// re-verifies the credential.
	clock.Advance(31 * time.Minute)

	session, _, err := svc.Authenticate(ctx, acct.Email, testPassword)
	if err != nil {
		t.Fatalf("Authenticate() after stale lock error = %v", err)
	}
	if session == nil {
		t.Fatal("expected a session")
	}

	stored, err := accounts.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.IsLocked || stored.LockoutUntil != nil {
		t.Error("successful login should clear the stale lock")
	}
	if stored.FailedLoginAttempts != 0 {
		t.Errorf("FailedLoginAttempts = %d, want 0", stored.FailedLoginAttempts)
	}

	events, err := trail.ListByAccount(ctx, acct.ID, 0)
	if err != nil {
		t.Fatalf("ListByAccount() error = %v", err)
	}
	found := false
	for _, e := range events {
		if e.Action == audit.ActionStaleLockRetry {
			found = true
		}
	}
	if !found {
		t.Error("stale lock retry should be recorded in the lockout trail")
	}
}

func TestAuthenticate_StaleLock_WrongPasswordRelocks(t *testing.T) {
	clock := newFakeClock()
	svc, accounts, _, acct := testService(t, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.Authenticate(ctx, acct.Email, "Wrong1Password") //nolint:errcheck // failures are the point
	}
	clock.Advance(31 * time.Minute)

	_, _, err := svc.Authenticate(ctx, acct.Email, "Wrong1Password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}

	stored, err := accounts.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !stored.IsLocked {
		t.Fatal("wrong password after a stale lock should re-lock")
	}
	want := clock.Now().Add(30 * time.Minute)
	if stored.LockoutUntil == nil || !stored.LockoutUntil.Equal(want) {
		t.Errorf("LockoutUntil = %v, want %v (fresh window)", stored.LockoutUntil, want)
	}
}

func TestAuthenticate_SuccessResetsCounter(t *testing.T) {
	svc, accounts, _, acct := testService(t, newFakeClock())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		svc.Authenticate(ctx, acct.Email, "Wrong1Password") //nolint:errcheck // failures are the point
	}

	if _, _, err := svc.Authenticate(ctx, acct.Email, testPassword); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	stored, err := accounts.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.FailedLoginAttempts != 0 {
		t.Errorf("FailedLoginAttempts = %d, want 0 after success", stored.FailedLoginAttempts)
	}

	// The streak starts over: one more failure must not lock.
	_, _, err = svc.Authenticate(ctx, acct.Email, "Wrong1Password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
	stored, _ = accounts.GetByID(ctx, acct.ID)
	if stored.IsLocked {
		t.Error("a single failure after a success should not lock")
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	clock := newFakeClock()
	svc, _, _, acct := testService(t, clock)
	ctx := context.Background()

	session, _, err := svc.Authenticate(ctx, acct.Email, testPassword)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	refreshed, err := svc.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.RefreshToken == session.RefreshToken {
		t.Error("rotation should issue a different refresh token")
	}
	if refreshed.AccessToken == "" {
		t.Error("rotation should issue a fresh access token")
	}
}

func TestRefresh_ReuseBurnsFamily(t *testing.T) {
	clock := newFakeClock()
	svc, _, _, acct := testService(t, clock)
	ctx := context.Background()

	session, _, err := svc.Authenticate(ctx, acct.Email, testPassword)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	refreshed, err := svc.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// Replaying the consumed token burns the family.
	if _, err := svc.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrTokenReuse) {
		t.Fatalf("error = %v, want ErrTokenReuse", err)
	}

	// The legitimate descendant is dead too.
	if _, err := svc.Refresh(ctx, refreshed.RefreshToken); err == nil {
		t.Error("descendant token should be revoked after family burn")
	}
}

func TestRefresh_ExpiredToken(t *testing.T) {
	clock := newFakeClock()
	svc, _, _, acct := testService(t, clock)
	ctx := context.Background()

	session, _, err := svc.Authenticate(ctx, acct.Email, testPassword)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	clock.Advance(8 * 24 * time.Hour)

	if _, err := svc.Refresh(ctx, session.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("error = %v, want ErrTokenExpired", err)
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	svc, _, _, _ := testService(t, newFakeClock())

	if _, err := svc.Refresh(context.Background(), "never-issued"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("error = %v, want ErrTokenInvalid", err)
	}
}

func TestRevokeAccountSessions(t *testing.T) {
	svc, _, _, acct := testService(t, newFakeClock())
	ctx := context.Background()

	session, _, err := svc.Authenticate(ctx, acct.Email, testPassword)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if err := svc.RevokeAccountSessions(ctx, acct.ID); err != nil {
		t.Fatalf("RevokeAccountSessions() error = %v", err)
	}

	if _, err := svc.Refresh(ctx, session.RefreshToken); err == nil {
		t.Error("refresh should fail after account sessions are revoked")
	}
}
