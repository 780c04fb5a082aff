package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-smoothlights/internal/lights"
	"github.com/nerrad567/gray-logic-smoothlights/internal/service"
)

// callServiceResponse acknowledges a dispatched call.
type callServiceResponse struct {
	Status  string          `json:"status"`
	Context service.Context `json:"context"`
}

// handleListServices returns every registered (domain, service) key.
func (s *Server) handleListServices(w http.ResponseWriter, _ *http.Request) {
	keys := s.services.Services()
	writeJSON(w, http.StatusOK, map[string]any{"services": keys, "count": len(keys)})
}

// handleCallService dispatches a service call through the registry, so any
// installed interceptor applies exactly as it does for MQTT callers.
//
// The body is the service data, e.g. {"entity_id": "light.kitchen"}.
// An empty body is an empty payload.
func (s *Server) handleCallService(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	svc := chi.URLParam(r, "service")

	data := service.Data{}
	if err := decodeOptionalJSON(r, &data, false); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	callCtx := service.NewContext(service.OriginAPI)
	callCtx.UserID = subjectFromContext(r.Context())

	if err := s.services.Call(r.Context(), domain, svc, data, callCtx); err != nil {
		switch {
		case errors.Is(err, service.ErrServiceNotFound):
			writeNotFound(w, "service not found")
		case errors.Is(err, lights.ErrNoTarget), errors.Is(err, service.ErrInvalidEntityRef):
			writeBadRequest(w, err.Error())
		default:
			s.logger.Error("service call failed", "service", domain+"."+svc, "error", err)
			writeError(w, http.StatusBadGateway, ErrCodeCallFailed, "service call failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, callServiceResponse{Status: "ok", Context: callCtx})
}
