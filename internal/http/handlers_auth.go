package http

import (
	"net/http"

	"solde/internal/auth"
	"solde/internal/core"
	applog "solde/internal/log"
)

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, applog.OpSignUp, err)
		return
	}

	res, err := s.auth.SignUp(r.Context(), in)
	if err != nil {
		writeError(w, r, applog.OpSignUp, err)
		return
	}

	s.logger.InfoContext(r.Context(), "User signed up",
		applog.FieldUserID, res.User.ID,
		applog.FieldAccountID, res.Account.ID)
	s.setSessionCookie(w, res.Session)
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var in auth.SignInInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, applog.OpSignIn, err)
		return
	}

	user, sess, err := s.auth.SignIn(r.Context(), in)
	if err != nil {
		writeError(w, r, applog.OpSignIn, err)
		return
	}

	s.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, struct {
		User    core.User    `json:"user"`
		Session core.Session `json:"session"`
	}{user, sess})
}

// handleSignOut always succeeds from the client's point of view; a failed
// delete leaves a session that expires on its own.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), sessionToken(r)); err != nil {
		s.logger.WarnContext(r.Context(), "Failed to delete session on sign-out", applog.FieldError, err)
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user core.User) {
	writeJSON(w, http.StatusOK, user)
}
