// Package config loads and validates TaskDeck Core configuration.
//
// Configuration is layered: hardcoded defaults, then a YAML file, then
// TASKDECK_* environment variables. Validation rejects configurations
// that would run insecurely (missing or short JWT secret) or not at all
// (missing database path, nonsense ports).
package config
