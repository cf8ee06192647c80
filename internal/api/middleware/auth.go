package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dom/progress-tracker/internal/domain"
	"github.com/dom/progress-tracker/internal/service"
)

type contextKey string

const (
	SessionKey contextKey = "session"
)

// Session resolves the request's SessionContext once, applies the idle
// timeout to authenticated sessions, and re-sends the cookie whenever the
// session id changed.
func Session(sessions *service.SessionManager, cookies Cookies, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			cookieID := cookies.Read(r)

			sc, err := sessions.Start(ctx, cookieID)
			if err != nil {
				log.ErrorContext(ctx, "failed to start session", "error", err)
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			if sc.IsAuthenticated() {
				if err := sessions.Touch(ctx, sc); err != nil {
					if !errors.Is(err, domain.ErrSessionExpired) && !errors.Is(err, domain.ErrUnauthenticated) {
						log.ErrorContext(ctx, "failed to touch session", "error", err)
						writeError(w, http.StatusInternalServerError, "Internal server error")
						return
					}
					if sc, err = sessions.Start(ctx, ""); err != nil {
						log.ErrorContext(ctx, "failed to restart session", "error", err)
						writeError(w, http.StatusInternalServerError, "Internal server error")
						return
					}
				}
			}

			if sc.ID() != cookieID {
				cookies.Set(w, r, sc.ID())
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, SessionKey, sc)))
		})
	}
}

// RequireAuth rejects requests without an authenticated session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc, ok := GetSession(r.Context())
		if !ok || !sc.IsAuthenticated() {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetSession(ctx context.Context) (*service.SessionContext, bool) {
	sc, ok := ctx.Value(SessionKey).(*service.SessionContext)
	return sc, ok
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
