package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskdeck/taskdeck-core/internal/task"
)

// handleListTasks returns tasks visible to the caller. Admins may filter by
// ?user= and everyone may filter by ?search=.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	opts := task.ListOptions{
		OwnerID: r.URL.Query().Get("user"),
		Search:  r.URL.Query().Get("search"),
	}

	tasks, err := s.tasks.List(r.Context(), actor, opts)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// handleCreateTask creates a task owned by the caller, or by an explicit
// owner when the caller is an admin.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	var input task.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	created, err := s.tasks.Create(r.Context(), actor, input)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleGetTask returns a single task within the caller's scope.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	t, err := s.tasks.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// handleUpdateTask applies a partial task update through the mutation pipeline.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	var patch task.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	updated, err := s.tasks.Update(r.Context(), actor, chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteTask removes a task within the caller's scope.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	if err := s.tasks.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
