package auth

import (
	"net/http"
	"time"
)

const (
	// SessionCookieName carries the session token for browser clients.
	SessionCookieName = "jwt"

	loggedOutValue     = "loggedout"
	loggedOutCookieTTL = 10 * time.Second
)

// SetSessionCookie stores token in an HTTP-only cookie. Secure is set in
// production only so the cookie also works over plain HTTP locally.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie overwrites the session cookie with a short-lived
// placeholder that never verifies.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    loggedOutValue,
		Path:     "/",
		Expires:  time.Now().Add(loggedOutCookieTTL),
		MaxAge:   int(loggedOutCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetSessionTokenFromCookie returns the session cookie value, if any.
func GetSessionTokenFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
