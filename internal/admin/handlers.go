package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	derrors "git.home.luguber.info/inful/fitstate/internal/foundation/errors"
	"git.home.luguber.info/inful/fitstate/internal/logfields"
	"git.home.luguber.info/inful/fitstate/internal/state"
)

// StateResponse is the body of GET /api/state/{path}.
type StateResponse struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	status := s.facade.GetInitializationStatus()
	if !status.IsInitialized {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(fmt.Sprintf("not ready: %d components tracked", len(status.Components))))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleStateTree(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.facade.GetStateTree())
}

func (s *Server) handleStatePath(w http.ResponseWriter, r *http.Request) {
	p, err := state.ParsePath(r.PathValue("path"))
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	value, ok := s.facade.GetState(p)
	if !ok {
		s.errorAdapter.WriteErrorResponse(w, r, derrors.NotFoundError("state path not set").
			WithContext("path", p.String()).
			Build())
		return
	}
	s.writeJSON(w, r, http.StatusOK, StateResponse{Path: p.String(), Value: value})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.facade.GetHistory())
}

func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.facade.GetSubscriptions())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.facade.GetInitializationStatus())
}

// writeJSON encodes into a buffer first so an encoding failure never leaves a
// partial body on the wire. ?pretty=1 indents the output.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if p := r.URL.Query().Get("pretty"); p == "1" || p == "true" {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, derrors.InternalError("failed to encode response").
			WithCause(err).
			Build())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Error("failed writing JSON response body", logfields.Error(err))
	}
}
