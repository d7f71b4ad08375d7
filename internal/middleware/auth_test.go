package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-storefront/internal/model"
	"go-storefront/internal/token"
)

func newAuthTestMiddleware(t *testing.T) (*AuthMiddleware, *token.Issuer) {
	t.Helper()
	issuer := token.NewIssuer("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	return NewAuthMiddleware(issuer), issuer
}

func testAccount(roles ...string) model.Account {
	return model.Account{
		ID:    "acc-1",
		Email: "ada@example.com",
		Roles: roles,
	}
}

func guardCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	m, _ := newAuthTestMiddleware(t)

	rec := httptest.NewRecorder()
	m.RequireAuth(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/user", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", guardCode(t, rec))
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	m, _ := newAuthTestMiddleware(t)

	r := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	r.Header.Set("Authorization", "Bearer not-a-jwt")

	rec := httptest.NewRecorder()
	m.RequireAuth(okHandler()).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsRefreshToken(t *testing.T) {
	m, issuer := newAuthTestMiddleware(t)

	refreshToken, err := issuer.IssueRefreshToken("acc-1")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	r.Header.Set("Authorization", "Bearer "+refreshToken)

	rec := httptest.NewRecorder()
	m.RequireAuth(okHandler()).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthPutsClaimsInContext(t *testing.T) {
	m, issuer := newAuthTestMiddleware(t)

	accessToken, err := issuer.IssueAccessToken(testAccount(model.RoleCustomer))
	require.NoError(t, err)

	var seen *model.AuthClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		seen = claims
		w.WriteHeader(http.StatusOK)
	})

	r := httptest.NewRequest(http.MethodGet, "/auth/user", nil)
	r.Header.Set("Authorization", "Bearer "+accessToken)

	rec := httptest.NewRecorder()
	m.RequireAuth(next).ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "acc-1", seen.AccountID)
	assert.Equal(t, "ada@example.com", seen.Email)
	assert.Equal(t, []string{model.RoleCustomer}, seen.Roles)
}

func TestRequireRoles(t *testing.T) {
	m, issuer := newAuthTestMiddleware(t)

	customerToken, err := issuer.IssueAccessToken(testAccount(model.RoleCustomer))
	require.NoError(t, err)
	adminToken, err := issuer.IssueAccessToken(testAccount(model.RoleCustomer, model.RoleAdmin))
	require.NoError(t, err)

	guard := m.RequireAuth(m.RequireRoles(model.RoleAdmin)(okHandler()))

	r := httptest.NewRequest(http.MethodGet, "/customers", nil)
	r.Header.Set("Authorization", "Bearer "+customerToken)
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", guardCode(t, rec))

	r = httptest.NewRequest(http.MethodGet, "/customers", nil)
	r.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRolesWithoutAuthIsUnauthorized(t *testing.T) {
	m, _ := newAuthTestMiddleware(t)

	// Role checks run behind authentication; with no session the request
	// never reaches the role comparison.
	guard := m.RequireAuth(m.RequireRoles(model.RoleAdmin)(okHandler()))

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", guardCode(t, rec))
}
