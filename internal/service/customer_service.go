package service

import (
	"context"
	"slices"

	"go-storefront/internal/model"
	"go-storefront/pkg/apierror"
)

type customerStore interface {
	FindByID(ctx context.Context, id string) (model.Account, error)
	List(ctx context.Context, filter model.CustomerFilter) ([]model.Account, int, error)
	UpdateRoles(ctx context.Context, id string, roles []string) (model.Account, error)
	Delete(ctx context.Context, id string) error
	RemoveAllFingerprints(ctx context.Context, accountID string) error
}

// CustomerService backs the admin customer panel. Role mutation is the
// only privileged path that changes an account's authorization.
type CustomerService struct {
	accounts customerStore
}

func NewCustomerService(accounts customerStore) *CustomerService {
	return &CustomerService{accounts: accounts}
}

func (s *CustomerService) List(ctx context.Context, filter model.CustomerFilter) ([]model.AuthAccount, int, error) {
	filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)

	accounts, total, err := s.accounts.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]model.AuthAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Public())
	}
	return out, total, nil
}

func (s *CustomerService) Get(ctx context.Context, id string) (model.AuthAccount, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return model.AuthAccount{}, err
	}
	return account.Public(), nil
}

// UpdateRoles replaces the account's role set. Existing access tokens keep
// their old roles snapshot until they expire; fingerprints are cleared so
// the next refresh picks up the new set.
func (s *CustomerService) UpdateRoles(ctx context.Context, id string, roles []string) (model.AuthAccount, error) {
	if len(roles) == 0 {
		return model.AuthAccount{}, apierror.BadRequest("roles cannot be empty", "")
	}
	for _, role := range roles {
		if !slices.Contains(model.ValidRoles, role) {
			return model.AuthAccount{}, apierror.BadRequest("invalid role", role)
		}
	}

	account, err := s.accounts.UpdateRoles(ctx, id, roles)
	if err != nil {
		return model.AuthAccount{}, err
	}

	if err := s.accounts.RemoveAllFingerprints(ctx, id); err != nil {
		return model.AuthAccount{}, err
	}

	return account.Public(), nil
}

// Delete removes the account; the fingerprint rows go with it via the
// foreign key cascade.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	return s.accounts.Delete(ctx, id)
}
