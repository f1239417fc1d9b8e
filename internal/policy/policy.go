package policy

import "github.com/taskdeck/taskdeck-core/internal/account"

// Actor is the authenticated identity a request acts as. It is threaded
// explicitly through every core call; nothing reads ambient request state.
type Actor struct {
	AccountID string
	Role      account.Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == account.RoleAdmin
}

// Decision is the outcome of a policy evaluation. A denial names the field
// that caused it and a human-readable reason, so callers can render
// field-specific errors.
type Decision struct {
	Allowed bool
	Field   string
	Reason  string
}

// Allow returns a permitting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision for the given field.
func Deny(field, reason string) Decision {
	return Decision{Field: field, Reason: reason}
}

// JSON field names for task patches.
const (
	TaskFieldTitle       = "title"
	TaskFieldDescription = "description"
	TaskFieldCompleted   = "completed"
	TaskFieldConfirmed   = "is_confirmed_by_admin"
	TaskFieldOwner       = "owner_id"
	TaskFieldTimeSpent   = "time_spent_minutes"
	TaskFieldWorkDesc    = "work_description"
)

// memberTaskFields is the exact set of task fields a non-admin owner may
// change: work-progress fields only.
var memberTaskFields = map[string]bool{
	TaskFieldCompleted: true,
	TaskFieldTimeSpent: true,
	TaskFieldWorkDesc:  true,
}

// TaskChange describes a proposed task mutation for policy evaluation:
// which fields the patch carries, and the current/proposed admin-confirmed
// values when that field is present.
type TaskChange struct {
	Fields []string

	ConfirmedPresent  bool
	ConfirmedCurrent  bool
	ConfirmedProposed bool
}

// CanUpdateTask decides, field by field, whether the actor may apply the
// change to a task. isOwner reports whether the task belongs to the actor.
//
// Admins may change anything. Non-admin owners may change only the
// work-progress fields; any other field in the patch denies the whole
// change. The admin-confirmed flag gets an additional explicit guard:
// a non-admin flipping its value is denied even though the field-set check
// already catches its presence.
func CanUpdateTask(actor Actor, isOwner bool, change TaskChange) Decision {
	if actor.IsAdmin() {
		return Allow()
	}
	if !isOwner {
		// Unreached in practice: the service hides foreign tasks as
		// not-found before policy runs.
		return Deny("", "not the task owner")
	}

	for _, field := range change.Fields {
		if !memberTaskFields[field] {
			return Deny(field, "field is not modifiable by non-admin users")
		}
	}

	if change.ConfirmedPresent && change.ConfirmedProposed != change.ConfirmedCurrent {
		return Deny(TaskFieldConfirmed, "only administrators can confirm tasks")
	}

	return Allow()
}

// JSON field names for account patches.
const (
	AccountFieldEmail     = "email"
	AccountFieldFirstName = "first_name"
	AccountFieldLastName  = "last_name"
	AccountFieldPassword  = "password"
	AccountFieldStaff     = "is_staff"
	AccountFieldSuperuser = "is_superuser"
	AccountFieldActive    = "is_active"
)

// selfAccountFields is the set of account fields a non-admin may change on
// their own account.
var selfAccountFields = map[string]bool{
	AccountFieldEmail:     true,
	AccountFieldFirstName: true,
	AccountFieldLastName:  true,
	AccountFieldPassword:  true,
}

// CanUpdateAccount decides whether the actor may apply the named fields to
// the target account. Admins may change anything, including the role flags;
// a non-admin may change only their own profile fields.
func CanUpdateAccount(actor Actor, targetID string, fields []string) Decision {
	if actor.IsAdmin() {
		return Allow()
	}
	if actor.AccountID != targetID {
		return Deny("", "cannot modify another user's account")
	}

	for _, field := range fields {
		if !selfAccountFields[field] {
			return Deny(field, "only administrators can change this field")
		}
	}

	return Allow()
}

// CanCreateAccount decides whether the actor may create accounts.
func CanCreateAccount(actor Actor) Decision {
	if actor.IsAdmin() {
		return Allow()
	}
	return Deny("", "only administrators can create accounts")
}

// CanDeleteTask decides whether the actor may delete a task.
func CanDeleteTask(actor Actor, isOwner bool) Decision {
	if actor.IsAdmin() || isOwner {
		return Allow()
	}
	return Deny("", "only the owner or an administrator can delete a task")
}

// ResolveTaskOwner decides which account a new task belongs to. Non-admin
// actors always own their own tasks, whatever owner the payload claims;
// admins may assign an explicit owner (resolved by the caller). Empty means
// "the actor".
func ResolveTaskOwner(actor Actor, requestedOwnerID string) string {
	if !actor.IsAdmin() || requestedOwnerID == "" {
		return actor.AccountID
	}
	return requestedOwnerID
}
