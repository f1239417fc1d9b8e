// Package database manages the SQLite connection and schema migrations
// for TaskDeck Core.
//
// The connection is deliberately limited to a single open connection:
// SQLite supports one writer, and a single connection serialises the
// read-modify-write sequences the auth subsystem relies on (login failure
// counters, lockout flags).
//
// Migrations are embedded into the binary by the top-level migrations
// package and applied in version order, each in its own transaction.
package database
