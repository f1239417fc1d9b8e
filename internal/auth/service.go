package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskdeck/taskdeck-core/internal/account"
	"github.com/taskdeck/taskdeck-core/internal/audit"
)

// Sentinel errors for authentication.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLockedOut          = errors.New("account locked, try again later")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenReuse         = errors.New("refresh token reuse detected")
)

// Config holds the authentication service policy knobs.
type Config struct {
	JWTSecret        string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	LockoutThreshold int
	LockoutWindow    time.Duration
}

// Session is an issued access/refresh token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// Service verifies credentials, applies the lockout policy, and issues
// sessions. All account state changes are persisted before any result is
// returned, so concurrent attempts against the same account cannot lose
// counter updates.
type Service struct {
	accounts account.Repository
	tokens   TokenRepository
	trail    audit.Repository
	clock    Clock
	logger   *slog.Logger
	cfg      Config
}

// NewService creates an authentication service. The audit repository may be
// nil to disable the lockout trail.
func NewService(accounts account.Repository, tokens TokenRepository, trail audit.Repository, clock Clock, logger *slog.Logger, cfg Config) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		trail:    trail,
		clock:    clock,
		logger:   logger,
		cfg:      cfg,
	}
}

// Authenticate verifies an email/password pair and returns a fresh session.
//
// The lockout state machine:
//   - An active lock (lockout_until in the future) fails immediately with
//     ErrLockedOut and no side effects; the failure counter does not move.
//   - A stale lock (lockout_until passed) does not auto-clear; the
//     credential is re-verified and the outcome decides what happens next.
//   - A failed check increments the counter transactionally; reaching the
//     threshold trips the lock for the configured window.
//   - A successful check zeroes the counter, clears any lock, stamps
//     last_login, and issues the session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, *account.Account, error) {
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()

	if acct.IsLocked && acct.LockoutUntil != nil && acct.LockoutUntil.After(now) {
		return nil, nil, ErrLockedOut
	}
	if acct.IsLocked {
		// Lock has expired but was never cleared. Policy: re-verify the
		// credential rather than unlocking unconditionally.
		s.record(ctx, acct.ID, audit.ActionStaleLockRetry, nil)
	}

	ok, err := account.VerifyPassword(password, acct.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verifying password: %w", err)
	}

	if !ok {
		locked, attempts, ferr := s.accounts.RecordLoginFailure(
			ctx, acct.ID, s.cfg.LockoutThreshold, now.Add(s.cfg.LockoutWindow))
		if ferr != nil {
			return nil, nil, fmt.Errorf("recording login failure: %w", ferr)
		}
		if locked {
			s.logger.Warn("account locked after repeated login failures",
				"account_id", acct.ID,
				"attempts", attempts,
			)
			s.record(ctx, acct.ID, audit.ActionAccountLocked, map[string]any{
				"attempts":      attempts,
				"lockout_until": now.Add(s.cfg.LockoutWindow).UTC().Format(time.RFC3339),
			})
		}
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.accounts.RecordLoginSuccess(ctx, acct.ID, now); err != nil {
		return nil, nil, fmt.Errorf("recording login success: %w", err)
	}
	acct.FailedLoginAttempts = 0
	acct.IsLocked = false
	acct.LockoutUntil = nil
	acct.LastLogin = &now

	session, err := s.issueSession(ctx, acct, now)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("login succeeded", "account_id", acct.ID, "role", acct.Role())
	return session, acct, nil
}

// Refresh exchanges a valid refresh token for a new session, rotating the
// refresh token. Presenting a revoked token burns its whole family.
func (s *Service) Refresh(ctx context.Context, rawToken string) (*Session, error) {
	stored, err := s.tokens.GetByTokenHash(ctx, HashToken(rawToken))
	if err != nil {
		return nil, err
	}

	if stored.Revoked {
		// A previously rotated token is being replayed: assume theft and
		// invalidate every descendant in the family.
		if err := s.tokens.RevokeFamily(ctx, stored.FamilyID); err != nil {
			s.logger.Error("revoking token family failed", "family_id", stored.FamilyID, "error", err)
		}
		s.logger.Warn("refresh token reuse detected", "account_id", stored.AccountID)
		return nil, ErrTokenReuse
	}

	now := s.clock.Now()
	if !stored.ExpiresAt.After(now) {
		return nil, ErrTokenExpired
	}

	acct, err := s.accounts.GetByID(ctx, stored.AccountID)
	if err != nil {
		return nil, err
	}

	raw, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	replacement := &RefreshToken{
		AccountID: acct.ID,
		FamilyID:  stored.FamilyID,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.tokens.Rotate(ctx, stored.ID, replacement); err != nil {
		return nil, fmt.Errorf("rotating refresh token: %w", err)
	}

	access, err := generateAccessToken(acct, s.cfg.JWTSecret, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// RevokeAccountSessions invalidates all of an account's refresh tokens.
func (s *Service) RevokeAccountSessions(ctx context.Context, accountID string) error {
	return s.tokens.RevokeAllForAccount(ctx, accountID)
}

// issueSession creates a new access/refresh token pair for an account.
func (s *Service) issueSession(ctx context.Context, acct *account.Account, now time.Time) (*Session, error) {
	access, err := generateAccessToken(acct, s.cfg.JWTSecret, now, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	raw, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, &RefreshToken{
		AccountID: acct.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// record writes a lockout trail entry, best effort.
func (s *Service) record(ctx context.Context, accountID, action string, details map[string]any) {
	if s.trail == nil {
		return
	}
	if err := s.trail.Create(ctx, &audit.Event{
		AccountID: accountID,
		Action:    action,
		Details:   details,
	}); err != nil {
		s.logger.Error("writing lockout event failed", "action", action, "error", err)
	}
}
