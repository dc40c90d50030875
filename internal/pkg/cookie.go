package pkg

import (
	"net/http"
	"time"
)

const SessionCookieName = "user_session"

// NewSessionCookie - builds the cookie that carries the hot-seat session id.
// It lives as long as the stored session; a zero ttl gives a browser-session
// cookie, matching a store without expiry.
func NewSessionCookie(id string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	if ttl > 0 {
		cookie.Expires = time.Now().Add(ttl)
		cookie.MaxAge = int(ttl.Seconds())
	}

	return cookie
}

// ExpiredSessionCookie - tells the browser to drop the session cookie.
func ExpiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}
}

// SessionIDFromRequest - returns the session id from the cookie, or "".
func SessionIDFromRequest(req *http.Request) string {
	cookie, err := req.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}
