package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-storefront/internal/model"
	"go-storefront/pkg/apierror"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Issuer mints and verifies the two token kinds. It is stateless: refresh
// revocation is the caller's job, done by checking the token's fingerprint
// against the credential store.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewIssuer(accessSecret string, refreshSecret string, accessTTL time.Duration, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (i *Issuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccessToken signs a short-lived token carrying identity and a roles
// snapshot. It is never persisted and cannot be revoked before expiry; the
// short TTL bounds that window.
func (i *Issuer) IssueAccessToken(account model.Account) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"roles": account.Roles,
		"typ":   KindAccess,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(i.accessTTL).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
}

// IssueRefreshToken signs a long-lived token carrying identity only. The
// caller must persist its fingerprint before handing it to the client.
func (i *Issuer) IssueRefreshToken(accountID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": accountID,
		"typ": KindRefresh,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(i.refreshTTL).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
}

// Verify checks signature, expiry and kind. Every failure collapses to the
// same unauthorized error so callers leak nothing about which check failed.
func (i *Issuer) Verify(tokenString string, expectedKind string) (*model.AuthClaims, error) {
	secret := i.accessSecret
	if expectedKind == KindRefresh {
		secret = i.refreshSecret
	}

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.Unauthorized("invalid token signing method")
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.Unauthorized("invalid or expired token")
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.Unauthorized("invalid token claims")
	}

	typ, _ := claimsMap["typ"].(string)
	if typ != expectedKind {
		return nil, apierror.Unauthorized("invalid token type")
	}

	claims := &model.AuthClaims{Kind: typ}
	claims.AccountID, _ = claimsMap["sub"].(string)
	claims.Email, _ = claimsMap["email"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)

	if rawRoles, exists := claimsMap["roles"].([]any); exists {
		for _, raw := range rawRoles {
			if role, isString := raw.(string); isString {
				claims.Roles = append(claims.Roles, role)
			}
		}
	}

	if claims.AccountID == "" {
		return nil, apierror.Unauthorized("invalid token subject")
	}

	return claims, nil
}

// Fingerprint is the keyed hash of a raw refresh token that the credential
// store persists in place of the token itself.
func (i *Issuer) Fingerprint(rawToken string) string {
	mac := hmac.New(sha256.New, i.refreshSecret)
	mac.Write([]byte(rawToken))
	return hex.EncodeToString(mac.Sum(nil))
}
