package httphandler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

const (
	csrfCookieName = "tempmail_csrf"
	csrfHeader     = "X-CSRF-Token"
	csrfTokenBytes = 32
)

// ensureCSRFCookie sets a CSRF cookie when the request has none. Browser
// clients echo it in the X-CSRF-Token header on mutating requests.
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    generateToken(),
		Path:     "/",
		HttpOnly: false, // read by browser code to fill the header
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
	})
}

// validCSRF reports whether the X-CSRF-Token header matches the CSRF cookie.
func validCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	token := r.Header.Get(csrfHeader)
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) == 1
}

func generateToken() string {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		panic("csrf: failed to generate random token: " + err.Error())
	}
	return hex.EncodeToString(b)
}
