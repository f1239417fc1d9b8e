package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskdeck/taskdeck-core/internal/account"
	"github.com/taskdeck/taskdeck-core/internal/policy"
)

// createAccountRequest is the request body for POST /accounts.
type createAccountRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	IsActive    *bool  `json:"is_active"`
}

// accountPatch is the request body for PATCH /accounts/{id}. Nil pointers
// mean "field absent".
type accountPatch struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Password    *string `json:"password"`
	IsStaff     *bool   `json:"is_staff"`
	IsSuperuser *bool   `json:"is_superuser"`
	IsActive    *bool   `json:"is_active"`
}

// fields returns the JSON names of every present field, for policy checks.
func (p *accountPatch) fields() []string {
	var fields []string
	if p.Email != nil {
		fields = append(fields, policy.AccountFieldEmail)
	}
	if p.FirstName != nil {
		fields = append(fields, policy.AccountFieldFirstName)
	}
	if p.LastName != nil {
		fields = append(fields, policy.AccountFieldLastName)
	}
	if p.Password != nil {
		fields = append(fields, policy.AccountFieldPassword)
	}
	if p.IsStaff != nil {
		fields = append(fields, policy.AccountFieldStaff)
	}
	if p.IsSuperuser != nil {
		fields = append(fields, policy.AccountFieldSuperuser)
	}
	if p.IsActive != nil {
		fields = append(fields, policy.AccountFieldActive)
	}
	return fields
}

// handleListAccounts returns all accounts for admins, or just the caller's
// own account otherwise.
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	if !actor.IsAdmin() {
		acct, err := s.accounts.GetByID(r.Context(), actor.AccountID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, []*account.Account{acct})
		return
	}

	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// handleCreateAccount registers a new account. Admin only.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}
	if decision := policy.CanCreateAccount(actor); !decision.Allowed {
		writeForbidden(w, decision.Field, decision.Reason)
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	email := account.NormalizeEmail(req.Email)
	if !account.IsValidEmail(email) {
		writeValidation(w, "email", "must be a valid email address")
		return
	}
	if err := account.ValidatePassword(req.Password); err != nil {
		s.writeDomainError(w, err)
		return
	}

	hash, err := account.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	acct := &account.Account{
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		IsStaff:      req.IsStaff,
		IsSuperuser:  req.IsSuperuser,
		IsActive:     true,
	}
	if req.IsActive != nil {
		acct.IsActive = *req.IsActive
	}

	if err := s.accounts.Create(r.Context(), acct); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.Info("account created", "account_id", acct.ID, "actor_id", actor.AccountID)
	writeJSON(w, http.StatusCreated, acct)
}

// handleGetAccount returns a single account. Non-admins can only read their
// own; anything else reports not found.
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if !actor.IsAdmin() && actor.AccountID != id {
		writeNotFound(w, "account not found")
		return
	}

	acct, err := s.accounts.GetByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// handleUpdateAccount applies a partial account update. The patch is
// rejected whole when any present field is denied or invalid.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	if !actor.IsAdmin() && actor.AccountID != id {
		writeNotFound(w, "account not found")
		return
	}

	var patch accountPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if decision := policy.CanUpdateAccount(actor, id, patch.fields()); !decision.Allowed {
		writeForbidden(w, decision.Field, decision.Reason)
		return
	}

	acct, err := s.accounts.GetByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if patch.Email != nil {
		email := account.NormalizeEmail(*patch.Email)
		if !account.IsValidEmail(email) {
			writeValidation(w, "email", "must be a valid email address")
			return
		}
		acct.Email = email
	}
	if patch.FirstName != nil {
		acct.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		acct.LastName = *patch.LastName
	}
	if patch.IsStaff != nil {
		acct.IsStaff = *patch.IsStaff
	}
	if patch.IsSuperuser != nil {
		acct.IsSuperuser = *patch.IsSuperuser
	}
	if patch.IsActive != nil {
		acct.IsActive = *patch.IsActive
	}
	if patch.Password != nil {
		if err := account.ValidatePassword(*patch.Password); err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	if err := s.accounts.Update(r.Context(), acct); err != nil {
		s.writeDomainError(w, err)
		return
	}

	// A password change invalidates every outstanding session for the account.
	if patch.Password != nil {
		hash, err := account.HashPassword(*patch.Password)
		if err != nil {
			s.logger.Error("failed to hash password", "error", err)
			writeInternalError(w, "internal server error")
			return
		}
		if err := s.accounts.UpdatePassword(r.Context(), id, hash); err != nil {
			s.writeDomainError(w, err)
			return
		}
		if err := s.auth.RevokeAccountSessions(r.Context(), id); err != nil {
			s.logger.Warn("failed to revoke sessions after password change",
				"account_id", id, "error", err)
		}
	}

	s.logger.Info("account updated", "account_id", id, "actor_id", actor.AccountID)
	writeJSON(w, http.StatusOK, acct)
}

// handleDeleteAccount removes an account and, by cascade, its tasks. Admin only.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}
	if !actor.IsAdmin() {
		writeForbidden(w, "", "only administrators can delete accounts")
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.Info("account deleted", "account_id", id, "actor_id", actor.AccountID)
	w.WriteHeader(http.StatusNoContent)
}
