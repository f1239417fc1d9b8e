// Package task implements task persistence and the mutation pipeline that
// gates every change: fetch, visibility, field policy, validation, apply.
//
// Visibility is ownership-based. A non-admin can only ever see, list, change,
// or delete their own tasks; anything outside that scope is reported as not
// found rather than forbidden, so the existence of other accounts' tasks is
// never leaked. Field-level rules live in the policy package; this package
// enforces their outcome and rejects a partial update whole when any present
// field fails.
package task
