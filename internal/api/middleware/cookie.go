package middleware

import (
	"net/http"
	"time"
)

// Cookies writes the session cookie. It is http-only, same-site, and secure
// whenever the request arrived over TLS.
type Cookies struct {
	Name        string
	ForceSecure bool
}

func (c Cookies) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (c Cookies) Set(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (c Cookies) Clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (c Cookies) secure(r *http.Request) bool {
	return c.ForceSecure || r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
