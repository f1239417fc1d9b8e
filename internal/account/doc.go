// Package account owns user identity for TaskDeck Core.
//
// It provides:
//   - The Account model, including credential hash and lockout state
//   - A two-tier role model derived from the staff flag (member → admin)
//   - Argon2id password hashing with constant-time verification
//   - A SQLite repository with transactional login-failure accounting
//   - First-boot admin seeding
//
// Email addresses are normalized (lower-cased, trimmed) before every store
// or lookup, so uniqueness is case-insensitive. The failed-login counter is
// only ever updated through RecordLoginFailure / RecordLoginSuccess, which
// keep the read-modify-write inside a single transaction.
package account
