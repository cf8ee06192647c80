package middleware

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/dom/progress-tracker/internal/logging"
	"github.com/dom/progress-tracker/internal/service"
)

const (
	CSRFHeader    = "X-CSRF-Token"
	CSRFFormField = "csrf_token"
)

// CSRF rejects state-changing requests whose token does not match the
// session's, before any handler logic runs.
func CSRF(sessions *service.SessionManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			sc, _ := GetSession(r.Context())
			if !sessions.VerifyCSRFToken(sc, csrfToken(r)) {
				logging.SecurityEvent(r.Context(), log, "csrf_rejected", "path", r.URL.Path, "ip", ClientIP(r))
				writeError(w, http.StatusForbidden, "Invalid request. Please refresh the page and try again.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func csrfToken(r *http.Request) string {
	if token := r.Header.Get(CSRFHeader); token != "" {
		return token
	}
	if isFormRequest(r) {
		return r.PostFormValue(CSRFFormField)
	}
	return ""
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isFormRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}
