package httpapi

import (
	"errors"
	"net/http"

	"github.com/mmynk/homestock/internal/auth"
	"github.com/mmynk/homestock/internal/session"
)

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, d session.Device) {
	writeJSON(w, http.StatusOK, d.Session.Snapshot())
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, d session.Device) {
	var env auth.Environment
	if err := decode(r, &env, true); err != nil {
		writeError(w, err)
		return
	}
	if env.UserAgent == "" {
		env.UserAgent = r.UserAgent()
	}
	if err := d.Session.Start(r.Context(), env); err != nil {
		s.logger.Warn("Session start interrupted", "error", err)
	}
	writeJSON(w, http.StatusOK, d.Session.Snapshot())
}

func (s *Server) loginWithUsername(w http.ResponseWriter, r *http.Request, d session.Device) {
	var req struct {
		Username string `json:"username"`
	}
	if err := decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if err := d.Session.LoginWithUsername(r.Context(), req.Username); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Session.Snapshot())
}

type loginResponse struct {
	Result  session.LoginResult `json:"result"`
	Session session.Snapshot    `json:"session"`
}

func (s *Server) loginWithProvider(w http.ResponseWriter, r *http.Request, d session.Device) {
	var env auth.Environment
	if err := decode(r, &env, true); err != nil {
		writeError(w, err)
		return
	}
	if env.UserAgent == "" {
		env.UserAgent = r.UserAgent()
	}

	res, err := d.Session.LoginWithIdentityProvider(r.Context(), env)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Result: res, Session: d.Session.Snapshot()})
}

// providerResult is what the client reports after running a provider flow.
type providerResult struct {
	Identity *auth.Identity `json:"identity"`
	Error    string         `json:"error,omitempty"`
}

func (p providerResult) err() error {
	switch p.Error {
	case "":
		return nil
	case "cancelled":
		return auth.ErrSignInCancelled
	default:
		return errors.New(p.Error)
	}
}

func (s *Server) deliverPopup(w http.ResponseWriter, r *http.Request, d session.Device) {
	var req providerResult
	if err := decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	d.Relay.DeliverPopup(req.Identity, req.err())
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) deliverRedirectResult(w http.ResponseWriter, r *http.Request, d session.Device) {
	var req providerResult
	if err := decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	d.Relay.SetRedirectResult(req.Identity, req.err())
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) deliverAuthState(w http.ResponseWriter, r *http.Request, d session.Device) {
	var req struct {
		Identity *auth.Identity `json:"identity"`
	}
	if err := decode(r, &req, true); err != nil {
		writeError(w, err)
		return
	}
	d.Relay.NotifyStateChanged(r.Context(), req.Identity)
	writeJSON(w, http.StatusOK, d.Session.Snapshot())
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request, d session.Device) {
	if err := d.Session.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Session.Snapshot())
}

func (s *Server) createFamily(w http.ResponseWriter, r *http.Request, d session.Device) {
	var req struct {
		Email      string `json:"email"`
		FamilyName string `json:"familyName"`
		Username   string `json:"username"`
	}
	if err := decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if err := d.Session.CreateFamily(r.Context(), req.Email, req.FamilyName, req.Username); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d.Session.Snapshot())
}

func (s *Server) joinFamily(w http.ResponseWriter, r *http.Request, d session.Device) {
	var req struct {
		Email    string `json:"email"`
		FamilyID string `json:"familyID"`
		Username string `json:"username"`
	}
	if err := decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}
	if err := d.Session.JoinFamily(r.Context(), req.Email, req.FamilyID, req.Username); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d.Session.Snapshot())
}

func (s *Server) getFamily(w http.ResponseWriter, r *http.Request, d session.Device) {
	family, err := d.Session.Family(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, family)
}
