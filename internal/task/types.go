package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Task is a unit of tracked work owned by exactly one account.
type Task struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	Completed          bool   `json:"completed"`
	IsConfirmedByAdmin bool   `json:"is_confirmed_by_admin"`
	OwnerID            string `json:"owner_id"`

	// Read-only owner details resolved by join for list/read payloads.
	OwnerEmail string `json:"owner_email,omitempty"`
	OwnerName  string `json:"owner_name,omitempty"`

	TimeSpentMinutes *int   `json:"time_spent_minutes"`
	WorkDescription  string `json:"work_description"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sentinel errors for task operations. ErrTaskNotFound covers both a missing
// task and one the actor is not allowed to see; callers cannot distinguish
// the two.
var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrOwnerNotFound = errors.New("task owner does not exist")
)

// ValidationError reports malformed input on a named field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PermissionError reports a policy denial, optionally naming the field that
// caused it.
type PermissionError struct {
	Field  string
	Reason string
}

func (e *PermissionError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// minTitleLength is the minimum accepted task title length.
const minTitleLength = 3

// validateTitle checks the title length requirement.
func validateTitle(title string) error {
	if len(strings.TrimSpace(title)) < minTitleLength {
		return &ValidationError{Field: "title", Reason: "must be at least 3 characters"}
	}
	return nil
}

// validateTimeSpent rejects negative minute counts.
func validateTimeSpent(minutes *int) error {
	if minutes != nil && *minutes < 0 {
		return &ValidationError{Field: "time_spent_minutes", Reason: "must not be negative"}
	}
	return nil
}
