// pkg/network/handlers.go
package network

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/opd-ai/go-orbitsim/pkg/config"
	"github.com/opd-ai/go-orbitsim/pkg/engine"
	"github.com/opd-ai/go-orbitsim/pkg/session"
	"github.com/opd-ai/go-orbitsim/pkg/validation"
)

// MissionSummary describes a catalogue entry.
type MissionSummary struct {
	Name    string         `json:"name"`
	Title   string         `json:"title"`
	Variant config.Variant `json:"variant"`
	Stages  int            `json:"stages"`
	Default bool           `json:"default,omitempty"`
}

type createSessionRequest struct {
	Mission string `json:"mission"`
}

type createSessionResponse struct {
	ID        string           `json:"id"`
	Telemetry engine.Telemetry `json:"telemetry"`
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code,omitempty"`
}

// readBody reads a bounded JSON body. An empty body is allowed when optional.
func readBody(r *http.Request, optional bool) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, validation.MaxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: request body too large", errBadRequest)
	}
	if len(body) > validation.MaxBodySize {
		return nil, fmt.Errorf("%w: request body too large", errBadRequest)
	}
	if len(body) == 0 && !optional {
		return nil, fmt.Errorf("%w: request body is required", errBadRequest)
	}
	return body, nil
}

func decode(body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleMissions(w http.ResponseWriter, r *http.Request) {
	cat := s.sessions.Catalogue()
	out := make([]MissionSummary, 0, len(cat.Missions))
	for _, m := range cat.Missions {
		out = append(out, MissionSummary{
			Name:    m.Name,
			Title:   m.Title,
			Variant: m.Variant,
			Stages:  len(m.Stages),
			Default: m.Name == cat.DefaultMission,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, true)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createSessionRequest
	if err := decode(body, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := s.sessions.Create(r.Context(), strings.TrimSpace(req.Mission))
	if err != nil {
		writeError(w, err)
		return
	}
	tel, err := sess.Telemetry(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, createSessionResponse{ID: sess.ID, Telemetry: tel})
}

func (s *Server) session(r *http.Request) (*session.Session, error) {
	return s.sessions.Get(mux.Vars(r)["id"])
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tel, err := sess.Telemetry(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tel)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := readBody(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.validator.ValidateBody(body, sess.ID); err != nil {
		if statusFor(err) != http.StatusTooManyRequests {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		writeError(w, err)
		return
	}

	var action engine.Action
	if err := decode(body, &action); err != nil {
		writeError(w, err)
		return
	}
	if err := validation.ValidateAction(action); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	tel, err := sess.Apply(r.Context(), action)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound || status == http.StatusInternalServerError {
			writeError(w, err)
			return
		}
		writeJSON(w, status, errorBody{Error: err.Error(), Telemetry: tel})
		return
	}
	writeJSON(w, http.StatusOK, tel)
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	var req codeRequest
	if err := decode(body, &req); err != nil {
		writeError(w, err)
		return
	}

	err = s.auth.RequestCode(r.Context(), req.Email)
	s.observeOTP("request", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, false)
	if err != nil {
		writeError(w, err)
		return
	}
	var req codeRequest
	if err := decode(body, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := s.auth.VerifyCode(r.Context(), req.Email, req.Code)
	s.observeOTP("verify", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func bearerToken(r *http.Request) string {
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	email, ok := s.auth.Authenticate(token)
	if token == "" || !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid or missing token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" || !s.auth.Revoke(token) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid or missing token"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) observeOTP(op string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = strings.ReplaceAll(strings.ToLower(http.StatusText(statusFor(err))), " ", "_")
	}
	s.metrics.ObserveOTP(op, outcome)
}
