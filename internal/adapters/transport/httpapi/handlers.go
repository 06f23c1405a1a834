package httpapi

import (
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/cfn"
	jsoniter "github.com/json-iterator/go"

	"github.com/olusolaa/fleet-provisioner/internal/adapters/lifecycle"
	"github.com/olusolaa/fleet-provisioner/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// handleHook always answers 200: denials, including unreadable bodies, are
// part of the hook contract.
func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.logger.Warnf(r.Context(), "Failed to read hook request body: %v", err)
		raw = nil
	}
	writeJSON(w, http.StatusOK, s.hook.Handle(r.Context(), raw))
}

// handleLifecycle answers with the custom resource response document. A
// body that is not an event at all is rejected with 400 and a FAILED
// document.
func (s *Server) handleLifecycle(w http.ResponseWriter, r *http.Request) {
	var event cfn.Event
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err == nil {
		err = json.Unmarshal(raw, &event)
	}
	if err != nil {
		s.logger.Warnf(r.Context(), "Rejecting lifecycle request body: %v", err)
		writeJSON(w, http.StatusBadRequest, lifecycle.ToResponse(event, domain.Failed(event.PhysicalResourceID, "malformed lifecycle event")))
		return
	}
	result := s.lifecycle.Handle(r.Context(), event)
	writeJSON(w, http.StatusOK, lifecycle.ToResponse(event, result))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
