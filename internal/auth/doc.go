// Package auth provides authentication for TaskDeck Core.
//
// It implements:
//   - Credential verification with a failed-login lockout state machine:
//     five consecutive failures lock the account for thirty minutes
//     (both configurable); a stale lock is re-evaluated lazily on the
//     next attempt rather than cleared by a background job
//   - JWT access tokens (HS256, signature-only validation)
//   - Rotating refresh tokens with family-based reuse detection
//   - An injectable clock so lockout expiry is testable without waiting
//
// The failure counter lives in the account repository and is only updated
// through a per-account transaction, so simultaneous bad-password attempts
// serialize and cannot both slip under the threshold.
package auth
