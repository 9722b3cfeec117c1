package http

import (
	"net/http"
	"strings"

	"solde/internal/core"
	applog "solde/internal/log"
)

// SessionCookie names the cookie that carries the session token.
const SessionCookie = "solde-session"

// sessionToken reads the token from the cookie, falling back to an
// Authorization: Bearer header for non-browser clients.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess core.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// authedHandler receives the resolved user explicitly; handlers never read
// the session from anywhere else.
type authedHandler func(w http.ResponseWriter, r *http.Request, user core.User)

// requireUser resolves the session and answers 401 when there is none.
func (s *Server) requireUser(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.Current(r.Context(), sessionToken(r))
		if err != nil {
			writeError(w, r, applog.OpRead, err)
			return
		}
		ctx := applog.WithFields(r.Context(), applog.FieldUserID, user.ID)
		next(w, r.WithContext(ctx), user)
	}
}
