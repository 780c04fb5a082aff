package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-smoothlights/internal/entry"
	"github.com/nerrad567/gray-logic-smoothlights/internal/flow"
)

type startFlowRequest struct {
	Handler string `json:"handler"`
}

// handleListFlows returns the open config and options flows.
func (s *Server) handleListFlows(w http.ResponseWriter, _ *http.Request) {
	flows := s.flows.InProgress()
	writeJSON(w, http.StatusOK, map[string]any{"flows": flows, "count": len(flows)})
}

// handleStartFlow starts a setup flow for the handler named in the body.
func (s *Server) handleStartFlow(w http.ResponseWriter, r *http.Request) {
	var req startFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	res, err := s.flows.Start(r.Context(), req.Handler)
	if err != nil {
		if errors.Is(err, flow.ErrUnknownHandler) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("starting config flow failed", "error", err)
		writeInternalError(w, "failed to start flow")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetFlow returns the current form of an open flow.
func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	res, err := s.flows.Progress(chi.URLParam(r, "id"))
	if err != nil {
		writeNotFound(w, "flow not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleConfigureFlow submits user input to a flow step.
//
// Numbers are decoded as json.Number; field coercion and field errors belong
// to the flow.
func (s *Server) handleConfigureFlow(w http.ResponseWriter, r *http.Request) {
	input := map[string]any{}
	if err := decodeOptionalJSON(r, &input, true); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	res, err := s.flows.Configure(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		switch {
		case errors.Is(err, flow.ErrFlowNotFound):
			writeNotFound(w, "flow not found")
		case errors.Is(err, entry.ErrEntryNotFound):
			writeNotFound(w, "entry not found")
		case errors.Is(err, entry.ErrInvalidEntry):
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			s.logger.Error("config flow step failed", "error", err)
			writeInternalError(w, "failed to complete flow step")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAbortFlow discards an open flow.
func (s *Server) handleAbortFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.flows.Abort(chi.URLParam(r, "id")); err != nil {
		writeNotFound(w, "flow not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStartOptionsFlow starts an options flow pre-filled from an entry.
func (s *Server) handleStartOptionsFlow(w http.ResponseWriter, r *http.Request) {
	res, err := s.flows.StartOptions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, entry.ErrEntryNotFound) {
			writeNotFound(w, "entry not found")
			return
		}
		s.logger.Error("starting options flow failed", "error", err)
		writeInternalError(w, "failed to start options flow")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
