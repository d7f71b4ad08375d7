package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go-storefront/internal/middleware"
	"go-storefront/internal/model"
	"go-storefront/pkg/apierror"
)

type sessionManager interface {
	Login(ctx context.Context, email string, password string) (model.Session, error)
	Register(ctx context.Context, email string, password string, name string) (model.Session, error)
	Refresh(ctx context.Context, rawRefreshToken string) (model.Session, error)
	Logout(ctx context.Context, rawRefreshToken string) error
	GetAccountByID(ctx context.Context, id string) (model.AuthAccount, error)
	UpdateProfile(ctx context.Context, id string, name string, phone string) (model.AuthAccount, error)
}

// AuthHandler owns the cookie edge of the session protocol: the refresh
// token enters and leaves HTTP only through the refresh cookie, never a
// JSON body.
type AuthHandler struct {
	sessions          sessionManager
	refreshCookieName string
	secureCookies     bool
}

func NewAuthHandler(sessions sessionManager, refreshCookieName string, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		sessions:          sessions,
		refreshCookieName: refreshCookieName,
		secureCookies:     secureCookies,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	session, err := h.sessions.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, session)
	writeSuccess(w, http.StatusOK, sessionResponse(session), nil)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	session, err := h.sessions.Register(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, session)
	writeSuccess(w, http.StatusCreated, sessionResponse(session), nil)
}

// Refresh rotates the refresh cookie and returns a new access token. The
// consumed cookie is dead afterwards regardless of its JWT expiry.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, apierror.Unauthorized("missing refresh token"))
		return
	}

	session, err := h.sessions.Refresh(r.Context(), cookie.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, session)
	writeSuccess(w, http.StatusOK, sessionResponse(session), nil)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, apierror.Unauthorized("missing refresh token"))
		return
	}

	if err := h.sessions.Logout(r.Context(), cookie.Value); err != nil {
		writeError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	writeSuccess(w, http.StatusOK, map[string]any{"loggedOut": true}, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	account, err := h.sessions.GetAccountByID(r.Context(), claims.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"user": account}, nil)
}

func (h *AuthHandler) MyRoles(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	account, err := h.sessions.GetAccountByID(r.Context(), claims.AccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, account.Roles, nil)
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	var payload model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	account, err := h.sessions.UpdateProfile(r.Context(), claims.AccountID, payload.Name, payload.Phone)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"user": account}, nil)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, session model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.refreshCookieName,
		Value:    session.RefreshToken,
		Path:     "/",
		MaxAge:   int(time.Until(session.RefreshExpiresAt).Seconds()),
		Secure:   h.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   h.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func sessionResponse(session model.Session) model.SessionResponse {
	return model.SessionResponse{
		User:        session.Account,
		AccessToken: session.AccessToken,
		ExpiresIn:   session.ExpiresIn,
	}
}
