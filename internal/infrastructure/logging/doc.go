// Package logging provides structured logging for TaskDeck Core.
//
// It wraps log/slog with consistent defaults: JSON output for production,
// text for development, default service/version fields on every entry, and
// level-based filtering configured from config.yaml.
//
// Never log secrets, tokens, password hashes, or full credentials.
package logging
