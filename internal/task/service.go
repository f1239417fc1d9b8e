package task

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taskdeck/taskdeck-core/internal/account"
	"github.com/taskdeck/taskdeck-core/internal/policy"
)

// Service runs the task mutation pipeline: visibility, policy, validation,
// then persistence, in that order.
type Service struct {
	tasks    Repository
	accounts account.Repository
	logger   *slog.Logger
}

// NewService creates a task service.
func NewService(tasks Repository, accounts account.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tasks: tasks, accounts: accounts, logger: logger}
}

// CreateInput carries the fields accepted on task creation.
type CreateInput struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Completed        bool   `json:"completed"`
	OwnerID          string `json:"owner_id"`
	TimeSpentMinutes *int   `json:"time_spent_minutes"`
	WorkDescription  string `json:"work_description"`
}

// Patch carries a partial task update. Nil pointers mean "field absent".
type Patch struct {
	Title              *string `json:"title"`
	Description        *string `json:"description"`
	Completed          *bool   `json:"completed"`
	IsConfirmedByAdmin *bool   `json:"is_confirmed_by_admin"`
	OwnerID            *string `json:"owner_id"`
	TimeSpentMinutes   *int    `json:"time_spent_minutes"`
	WorkDescription    *string `json:"work_description"`
}

// fields returns the JSON names of every present field, for policy checks.
func (p *Patch) fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, policy.TaskFieldTitle)
	}
	if p.Description != nil {
		fields = append(fields, policy.TaskFieldDescription)
	}
	if p.Completed != nil {
		fields = append(fields, policy.TaskFieldCompleted)
	}
	if p.IsConfirmedByAdmin != nil {
		fields = append(fields, policy.TaskFieldConfirmed)
	}
	if p.OwnerID != nil {
		fields = append(fields, policy.TaskFieldOwner)
	}
	if p.TimeSpentMinutes != nil {
		fields = append(fields, policy.TaskFieldTimeSpent)
	}
	if p.WorkDescription != nil {
		fields = append(fields, policy.TaskFieldWorkDesc)
	}
	return fields
}

// ListOptions carries caller-supplied listing filters before scoping.
type ListOptions struct {
	// OwnerID is the admin-only ?user= filter. Ignored for non-admins.
	OwnerID string

	// Search is a free-text filter over title, description, and owner email.
	Search string
}

// List returns tasks visible to the actor. Non-admins only ever see their
// own tasks regardless of the requested filter. An admin filter naming an
// unknown account yields an empty result, not an error.
func (s *Service) List(ctx context.Context, actor policy.Actor, opts ListOptions) ([]*Task, error) {
	filter := Filter{Search: opts.Search}

	if !actor.IsAdmin() {
		filter.OwnerID = actor.AccountID
	} else if opts.OwnerID != "" {
		if _, err := s.accounts.GetByID(ctx, opts.OwnerID); err != nil {
			if errors.Is(err, account.ErrAccountNotFound) {
				return []*Task{}, nil
			}
			return nil, err
		}
		filter.OwnerID = opts.OwnerID
	}

	return s.tasks.List(ctx, filter)
}

// Get returns a single task, treating tasks outside the actor's scope as
// missing.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id string) (*Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && t.OwnerID != actor.AccountID {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

// Create validates input, resolves ownership, and persists a new task.
// Non-admins always own what they create; admins may assign any existing
// account as owner.
func (s *Service) Create(ctx context.Context, actor policy.Actor, input CreateInput) (*Task, error) {
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}
	if err := validateTimeSpent(input.TimeSpentMinutes); err != nil {
		return nil, err
	}

	ownerID := policy.ResolveTaskOwner(actor, input.OwnerID)
	if ownerID != actor.AccountID {
		if _, err := s.accounts.GetByID(ctx, ownerID); err != nil {
			if errors.Is(err, account.ErrAccountNotFound) {
				return nil, ErrOwnerNotFound
			}
			return nil, err
		}
	}

	t := &Task{
		Title:            input.Title,
		Description:      input.Description,
		Completed:        input.Completed,
		OwnerID:          ownerID,
		TimeSpentMinutes: input.TimeSpentMinutes,
		WorkDescription:  input.WorkDescription,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("task created", "task_id", t.ID, "owner_id", t.OwnerID, "actor_id", actor.AccountID)

	// Re-read so the response carries the joined owner details.
	return s.tasks.GetByID(ctx, t.ID)
}

// Update applies a partial update. The pipeline order is fixed: fetch,
// visibility, policy, validation, apply, persist. A patch is rejected whole
// when any present field is denied or invalid.
func (s *Service) Update(ctx context.Context, actor policy.Actor, id string, patch Patch) (*Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	isOwner := t.OwnerID == actor.AccountID
	if !actor.IsAdmin() && !isOwner {
		return nil, ErrTaskNotFound
	}

	change := policy.TaskChange{Fields: patch.fields()}
	if patch.IsConfirmedByAdmin != nil {
		change.ConfirmedPresent = true
		change.ConfirmedCurrent = t.IsConfirmedByAdmin
		change.ConfirmedProposed = *patch.IsConfirmedByAdmin
	}
	if decision := policy.CanUpdateTask(actor, isOwner, change); !decision.Allowed {
		return nil, &PermissionError{Field: decision.Field, Reason: decision.Reason}
	}

	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	if err := validateTimeSpent(patch.TimeSpentMinutes); err != nil {
		return nil, err
	}
	if patch.OwnerID != nil && *patch.OwnerID != t.OwnerID {
		if _, err := s.accounts.GetByID(ctx, *patch.OwnerID); err != nil {
			if errors.Is(err, account.ErrAccountNotFound) {
				return nil, ErrOwnerNotFound
			}
			return nil, err
		}
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	if patch.IsConfirmedByAdmin != nil {
		t.IsConfirmedByAdmin = *patch.IsConfirmedByAdmin
	}
	if patch.OwnerID != nil {
		t.OwnerID = *patch.OwnerID
	}
	if patch.TimeSpentMinutes != nil {
		t.TimeSpentMinutes = patch.TimeSpentMinutes
	}
	if patch.WorkDescription != nil {
		t.WorkDescription = *patch.WorkDescription
	}

	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("task updated", "task_id", t.ID, "actor_id", actor.AccountID)

	return s.tasks.GetByID(ctx, t.ID)
}

// Delete removes a task. Owners and admins may delete; everyone else sees
// the task as missing.
func (s *Service) Delete(ctx context.Context, actor policy.Actor, id string) error {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	isOwner := t.OwnerID == actor.AccountID
	if !actor.IsAdmin() && !isOwner {
		return ErrTaskNotFound
	}
	if decision := policy.CanDeleteTask(actor, isOwner); !decision.Allowed {
		return &PermissionError{Reason: decision.Reason}
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("task deleted", "task_id", id, "actor_id", actor.AccountID)
	return nil
}
