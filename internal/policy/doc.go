// Package policy holds the pure access-control decisions for TaskDeck Core.
//
// Every function here is side-effect free: it takes an explicit actor, the
// ownership relation, and a description of the proposed change, and returns
// a Decision. Denials carry the offending field and a reason so the API
// layer can render field-specific errors. Keeping the decisions pure makes
// the authorisation model testable without a database or HTTP stack.
//
// The model is field-level, not just resource-level: a non-admin owner may
// patch a task's work-progress fields but nothing else, and a non-admin may
// not grant themselves staff flags.
package policy
