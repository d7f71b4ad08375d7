package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go-storefront/internal/model"
)

const csrfHeaderName = "X-CSRF-Token"

// CsrfMiddleware implements the double-submit-cookie protocol. A token is
// an HMAC over a random value and the current session identifier; the
// client holds it both in a script-readable cookie and echoes it back in a
// header (or body/query field). A cross-site attacker can trigger the
// cookie but cannot read it, so the echoed half never matches.
type CsrfMiddleware struct {
	secret            []byte
	cookieName        string
	refreshCookieName string
	cookieTTL         time.Duration
	secure            bool
}

func NewCsrfMiddleware(secret string, cookieName string, refreshCookieName string, cookieTTL time.Duration, secure bool) *CsrfMiddleware {
	return &CsrfMiddleware{
		secret:            []byte(secret),
		cookieName:        cookieName,
		refreshCookieName: refreshCookieName,
		cookieTTL:         cookieTTL,
		secure:            secure,
	}
}

// Protect rejects state-mutating requests whose echoed token does not
// match the cookie and the current session identifier. Read methods pass
// through untouched.
func (m *CsrfMiddleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			writeCsrfError(w)
			return
		}

		submitted := m.tokenFromRequest(r)
		if submitted == "" {
			writeCsrfError(w)
			return
		}

		if !hmac.Equal([]byte(submitted), []byte(cookie.Value)) {
			writeCsrfError(w)
			return
		}

		if !m.verify(submitted, m.sessionIdentifier(r)) {
			writeCsrfError(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// TokenHandler issues a fresh token bound to the current session
// identifier and sets the cookie half. It is read-only, CSRF-exempt and
// reachable before authentication: a client needs a token before its
// first mutating call. Tokens minted pre-login stop validating once the
// refresh cookie appears; clients re-fetch after login.
func (m *CsrfMiddleware) TokenHandler(w http.ResponseWriter, r *http.Request) {
	csrfToken, err := m.issue(w, r)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(model.APIResponse{
			Success: false,
			Error:   &model.APIError{Code: "INTERNAL_ERROR", Message: "could not issue csrf token"},
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    model.CsrfTokenResponse{CsrfToken: csrfToken},
	})
}

func (m *CsrfMiddleware) issue(w http.ResponseWriter, r *http.Request) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	random := hex.EncodeToString(buf)
	csrfToken := random + "." + m.sign(random, m.sessionIdentifier(r))

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    csrfToken,
		Path:     "/",
		MaxAge:   int(m.cookieTTL.Seconds()),
		Secure:   m.secure,
		HttpOnly: false, // client script must read it to echo the header
		SameSite: http.SameSiteStrictMode,
	})

	return csrfToken, nil
}

// sessionIdentifier binds tokens to the session: the refresh cookie when
// one is present, otherwise a pre-login fallback of client IP plus user
// agent.
func (m *CsrfMiddleware) sessionIdentifier(r *http.Request) string {
	raw := ""
	if cookie, err := r.Cookie(m.refreshCookieName); err == nil && cookie.Value != "" {
		raw = cookie.Value
	} else {
		raw = extractClientIP(r) + "-" + r.UserAgent()
	}

	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// tokenFromRequest checks the header, then a form body field, then the
// query string, in that fixed order.
func (m *CsrfMiddleware) tokenFromRequest(r *http.Request) string {
	if fromHeader := strings.TrimSpace(r.Header.Get(csrfHeaderName)); fromHeader != "" {
		return fromHeader
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") || strings.HasPrefix(contentType, "multipart/form-data") {
		if fromBody := strings.TrimSpace(r.PostFormValue("_csrf")); fromBody != "" {
			return fromBody
		}
	}

	return strings.TrimSpace(r.URL.Query().Get("_csrf"))
}

func (m *CsrfMiddleware) sign(random string, sessionID string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(random))
	mac.Write([]byte("!"))
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (m *CsrfMiddleware) verify(csrfToken string, sessionID string) bool {
	random, signature, found := strings.Cut(csrfToken, ".")
	if !found || random == "" || signature == "" {
		return false
	}

	expected := m.sign(random, sessionID)
	return hmac.Equal([]byte(signature), []byte(expected))
}

func writeCsrfError(w http.ResponseWriter) {
	writeGuardError(w, "INVALID_CSRF_TOKEN", "invalid csrf token")
}
