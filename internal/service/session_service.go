package service

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-storefront/internal/model"
	"go-storefront/internal/token"
	"go-storefront/pkg/apierror"
)

const bcryptCost = 12

var adminEmailPattern = regexp.MustCompile(`(?i)^admin@`)

type accountStore interface {
	FindByEmail(ctx context.Context, email string) (model.Account, error)
	FindByID(ctx context.Context, id string) (model.Account, error)
	Create(ctx context.Context, a model.Account) error
	UpdateProfile(ctx context.Context, id string, name string, phone string) (model.Account, error)
	AddFingerprint(ctx context.Context, accountID string, fingerprint string, issuedAt time.Time, expiresAt time.Time) error
	ConsumeFingerprint(ctx context.Context, accountID string, fingerprint string) error
	RemoveAllFingerprints(ctx context.Context, accountID string) error
}

type tokenIssuer interface {
	IssueAccessToken(account model.Account) (string, error)
	IssueRefreshToken(accountID string) (string, error)
	Verify(tokenString string, expectedKind string) (*model.AuthClaims, error)
	Fingerprint(rawToken string) string
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// SessionService orchestrates login, register, refresh and logout. All
// session state lives in the credential store as refresh fingerprints;
// the service itself is stateless.
type SessionService struct {
	accounts accountStore
	issuer   tokenIssuer

	// autoProvision re-enables the legacy demo behavior: failed logins
	// create the account, and admin@* emails receive the admin role.
	autoProvision bool
}

func NewSessionService(accounts accountStore, issuer tokenIssuer, autoProvision bool) *SessionService {
	return &SessionService{accounts: accounts, issuer: issuer, autoProvision: autoProvision}
}

func (s *SessionService) Login(ctx context.Context, email string, password string) (model.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return model.Session{}, apierror.BadRequest("email and password are required", "")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if s.autoProvision {
			return s.provision(ctx, email, password, "User")
		}
		return model.Session{}, apierror.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return model.Session{}, apierror.Unauthorized("invalid credentials")
	}

	return s.issueSession(ctx, account)
}

func (s *SessionService) Register(ctx context.Context, email string, password string, name string) (model.Session, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "User"
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return model.Session{}, apierror.BadRequest("email must be valid", email)
	}
	if len(password) < 6 {
		return model.Session{}, apierror.BadRequest("password must be at least 6 characters", "")
	}

	return s.provision(ctx, email, password, name)
}

// Refresh rotates the presented refresh token: the consumed fingerprint is
// removed and a fresh pair is issued. A second use of the same token fails
// because its fingerprint is already gone.
func (s *SessionService) Refresh(ctx context.Context, rawRefreshToken string) (model.Session, error) {
	account, err := s.resolveRefresh(ctx, rawRefreshToken)
	if err != nil {
		return model.Session{}, err
	}

	return s.issueSession(ctx, account)
}

// Logout consumes the presented token's fingerprint without issuing a
// replacement. A repeated logout fails unauthorized, which clients treat
// as already logged out.
func (s *SessionService) Logout(ctx context.Context, rawRefreshToken string) error {
	_, err := s.resolveRefresh(ctx, rawRefreshToken)
	return err
}

// LogoutEverywhere clears every fingerprint for the account.
func (s *SessionService) LogoutEverywhere(ctx context.Context, accountID string) error {
	return s.accounts.RemoveAllFingerprints(ctx, accountID)
}

func (s *SessionService) GetAccountByID(ctx context.Context, id string) (model.AuthAccount, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return model.AuthAccount{}, err
	}
	return account.Public(), nil
}

func (s *SessionService) UpdateProfile(ctx context.Context, id string, name string, phone string) (model.AuthAccount, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		return model.AuthAccount{}, apierror.BadRequest("name cannot be empty", "")
	}

	account, err := s.accounts.UpdateProfile(ctx, id, name, phone)
	if err != nil {
		return model.AuthAccount{}, err
	}
	return account.Public(), nil
}

// resolveRefresh is the shared identity-resolution step behind Refresh and
// Logout: verify signature and expiry, load the account, then consume the
// fingerprint. Tampered, expired, revoked and account-deleted tokens all
// fail with the same unauthorized error so the response reveals nothing
// about which check tripped.
func (s *SessionService) resolveRefresh(ctx context.Context, rawRefreshToken string) (model.Account, error) {
	unauthorized := apierror.Unauthorized("invalid refresh token")

	if strings.TrimSpace(rawRefreshToken) == "" {
		return model.Account{}, unauthorized
	}

	claims, err := s.issuer.Verify(rawRefreshToken, token.KindRefresh)
	if err != nil {
		return model.Account{}, unauthorized
	}

	account, err := s.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		return model.Account{}, unauthorized
	}

	fingerprint := s.issuer.Fingerprint(rawRefreshToken)
	if err := s.accounts.ConsumeFingerprint(ctx, account.ID, fingerprint); err != nil {
		return model.Account{}, unauthorized
	}

	return account, nil
}

func (s *SessionService) provision(ctx context.Context, email string, password string, name string) (model.Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return model.Session{}, err
	}

	roles := []string{model.RoleCustomer}
	if s.autoProvision && adminEmailPattern.MatchString(email) {
		roles = append(roles, model.RoleAdmin)
	}

	now := time.Now().UTC()
	account := model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return model.Session{}, err
	}

	return s.issueSession(ctx, account)
}

// issueSession mints an access/refresh pair and persists the new refresh
// fingerprint. Existing fingerprints stay valid so other devices keep
// their sessions.
func (s *SessionService) issueSession(ctx context.Context, account model.Account) (model.Session, error) {
	accessToken, err := s.issuer.IssueAccessToken(account)
	if err != nil {
		return model.Session{}, err
	}

	refreshToken, err := s.issuer.IssueRefreshToken(account.ID)
	if err != nil {
		return model.Session{}, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.issuer.RefreshTTL())
	if err := s.accounts.AddFingerprint(ctx, account.ID, s.issuer.Fingerprint(refreshToken), now, expiresAt); err != nil {
		return model.Session{}, err
	}

	return model.Session{
		Account:          account.Public(),
		AccessToken:      accessToken,
		ExpiresIn:        int64(s.issuer.AccessTTL().Seconds()),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: expiresAt,
	}, nil
}
