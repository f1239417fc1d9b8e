package account

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"
)

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleMember is a regular user: sees and mutates only their own tasks,
	// and only the work-progress fields of those.
	RoleMember Role = "member"

	// RoleAdmin is a staff user: bypasses ownership scoping, confirms
	// tasks, manages accounts.
	RoleAdmin Role = "admin"
)

// Account represents a user account with its credential and lockout state.
type Account struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	PasswordHash string `json:"-"` // never serialised
	IsStaff      bool   `json:"is_staff"`
	IsSuperuser  bool   `json:"is_superuser"`
	IsActive     bool   `json:"is_active"`

	// Lockout state. Invariant: IsLocked implies LockoutUntil is set;
	// the lock is considered stale once LockoutUntil has passed.
	FailedLoginAttempts int        `json:"-"`
	IsLocked            bool       `json:"-"`
	LockoutUntil        *time.Time `json:"-"`

	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Role derives the account's role from its staff flag.
func (a *Account) Role() Role {
	if a.IsStaff {
		return RoleAdmin
	}
	return RoleMember
}

// FullName returns the account's display name.
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// NormalizeEmail lowercases and trims an email address. All lookups and
// stored values go through this so that uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail checks that an address parses as a bare RFC 5322 address.
func IsValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// ValidatePassword checks password strength: at least 8 characters, one
// digit, and one uppercase letter.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}

	var hasDigit, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}
	if !hasUpper {
		return ErrPasswordNoUpper
	}
	return nil
}

// Sentinel errors for account operations.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrEmailExists      = errors.New("email already registered")
	ErrEmailInvalid     = errors.New("invalid email address")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordNoDigit  = errors.New("password must contain at least one digit")
	ErrPasswordNoUpper  = errors.New("password must contain at least one uppercase letter")
)
