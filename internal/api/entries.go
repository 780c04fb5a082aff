package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-smoothlights/internal/entry"
)

// handleListEntries returns all config entries, oldest first.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.entries.List(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

// handleGetEntry returns one config entry.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.entries.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleDeleteEntry unloads and removes a config entry.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.entries.Delete(r.Context(), id); err != nil {
		if errors.Is(err, entry.ErrEntryNotFound) {
			writeNotFound(w, "entry not found")
			return
		}
		s.logger.Error("deleting entry failed", "entry_id", id, "error", err)
		writeInternalError(w, "failed to delete entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReloadEntry deactivates and re-activates an entry from its stored data.
func (s *Server) handleReloadEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.entries.Reload(r.Context(), id); err != nil {
		if errors.Is(err, entry.ErrEntryNotFound) {
			writeNotFound(w, "entry not found")
			return
		}
		s.logger.Error("reloading entry failed", "entry_id", id, "error", err)
		writeInternalError(w, "failed to reload entry")
		return
	}

	e, err := s.entries.Get(r.Context(), id)
	if err != nil {
		writeNotFound(w, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}
