package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/auth"
	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keeper/internal/logger"
)

const (
	stateCookie    = "keeper_oauth_state"
	stateCookieTTL = 10 * time.Minute
)

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

func tokenFrom(sess domain.Session) tokenResponse {
	return tokenResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: sess.User}
}

// Login stores a fresh OAuth state in a cookie and redirects to Google.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := auth.NewState()
		if err != nil {
			respondError(w, r, d.Logger, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookie,
			Value:    state,
			Path:     "/auth",
			MaxAge:   int(stateCookieTTL.Seconds()),
			HttpOnly: true,
			Secure:   isHTTPS(r, d.TrustProxy),
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, d.Auth.SignIn(state), http.StatusFound)
	}
}

// Callback checks the state, exchanges the code and returns a session token.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		cookie, err := r.Cookie(stateCookie)
		if err != nil || !auth.StateMatches(cookie.Value, q.Get("state")) {
			writeError(w, http.StatusBadRequest, "invalid_state", "oauth state mismatch")
			return
		}
		clearStateCookie(w)

		if e := q.Get("error"); e != "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "sign-in refused: "+e)
			return
		}
		code := q.Get("code")
		if code == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "missing authorization code")
			return
		}

		sess, err := d.Auth.Callback(r.Context(), code)
		if err != nil {
			d.Logger.Warn("sign-in failed", logger.Error(err))
			writeError(w, http.StatusUnauthorized, "unauthenticated", "sign-in failed")
			return
		}

		writeJSON(w, http.StatusOK, tokenFrom(sess))
	}
}

// Refresh swaps the caller's token for a new one. Mounted views are
// re-initialized by the auth listener.
func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrFail(w, r)
		if !ok {
			return
		}

		next, err := d.Auth.Refresh(r.Context(), sess)
		if err != nil {
			respondError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenFrom(next))
	}
}

// Logout revokes the caller's token. Mounted views are unmounted by the
// auth listener.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrFail(w, r)
		if !ok {
			return
		}

		if err := d.Auth.SignOut(r.Context(), sess); err != nil {
			respondError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func isHTTPS(r *http.Request, trustProxy bool) bool {
	if r.TLS != nil {
		return true
	}
	return trustProxy && r.Header.Get("X-Forwarded-Proto") == "https"
}
