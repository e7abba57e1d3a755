package web

import (
	"errors"
	"net/http"

	"github.com/spf13/cast"

	"github.com/joescharf/tracker/internal/models"
	"github.com/joescharf/tracker/internal/tracker"
)

// Read-only JSON views of the issues collection for logged-in sessions.

func (s *Server) apiListIssues(w http.ResponseWriter, r *http.Request) {
	if !FromContext(r.Context()).Authenticated() {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	q := r.URL.Query()
	f := tracker.Filter{
		State:    models.State(q.Get("state")),
		Category: models.Category(q.Get("category")),
	}
	if f.State != "" && !f.State.Valid() {
		writeError(w, http.StatusBadRequest, "invalid state")
		return
	}
	if f.Category != "" && !f.Category.Valid() {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	issues, err := s.tracker.ListIssues(r.Context(), f)
	if err != nil {
		s.log.Error("list issues", "err", err)
		writeError(w, http.StatusInternalServerError, "operation failed")
		return
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) apiGetIssue(w http.ResponseWriter, r *http.Request) {
	if !FromContext(r.Context()).Authenticated() {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := cast.ToIntE(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid issue id")
		return
	}
	issue, err := s.tracker.GetIssue(r.Context(), id)
	if errors.Is(err, tracker.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.log.Error("get issue", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "operation failed")
		return
	}
	writeJSON(w, http.StatusOK, issue)
}
