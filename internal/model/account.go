package model

import (
	"slices"
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// ValidRoles lists every role an account may carry.
var ValidRoles = []string{RoleCustomer, RoleAdmin}

type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a Account) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// AuthAccount is the client-facing projection of an account. It never
// carries the password hash.
type AuthAccount struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Phone string   `json:"phone,omitempty"`
	Roles []string `json:"roles"`
}

func (a Account) Public() AuthAccount {
	return AuthAccount{ID: a.ID, Email: a.Email, Name: a.Name, Phone: a.Phone, Roles: a.Roles}
}

// AuthClaims is the verified content of an access or refresh token.
type AuthClaims struct {
	AccountID string   `json:"sub"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	Kind      string   `json:"typ"`
	TokenID   string   `json:"jti"`
}

func (c *AuthClaims) HasRole(role string) bool {
	return c != nil && slices.Contains(c.Roles, role)
}

// Session is the result of login, register and refresh. The refresh token
// travels only in a cookie; handlers must never serialize it into a body.
type Session struct {
	Account          AuthAccount
	AccessToken      string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresAt time.Time
}
