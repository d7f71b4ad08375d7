package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-storefront/internal/model"
	"go-storefront/internal/token"
	"go-storefront/pkg/apierror"
)

type fakeAccountStore struct {
	mu           sync.Mutex
	accounts     map[string]model.Account
	fingerprints map[string]map[string]time.Time
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		accounts:     make(map[string]model.Account),
		fingerprints: make(map[string]map[string]time.Time),
	}
}

func (f *fakeAccountStore) FindByEmail(_ context.Context, email string) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Account{}, model.ErrAccountNotFound
}

func (f *fakeAccountStore) FindByID(_ context.Context, id string) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeAccountStore) Create(_ context.Context, a model.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Email == a.Email {
			return apierror.Conflict("email already registered", a.Email)
		}
	}
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeAccountStore) UpdateProfile(_ context.Context, id string, name string, phone string) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	a.Name = name
	a.Phone = phone
	f.accounts[id] = a
	return a, nil
}

func (f *fakeAccountStore) AddFingerprint(_ context.Context, accountID string, fingerprint string, _ time.Time, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fingerprints[accountID] == nil {
		f.fingerprints[accountID] = make(map[string]time.Time)
	}
	f.fingerprints[accountID][fingerprint] = expiresAt
	return nil
}

// ConsumeFingerprint mirrors the conditional delete in the repository:
// removal succeeds only while the row exists and is unexpired, and a given
// fingerprint can be consumed exactly once.
func (f *fakeAccountStore) ConsumeFingerprint(_ context.Context, accountID string, fingerprint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	expiresAt, ok := f.fingerprints[accountID][fingerprint]
	if !ok || time.Now().After(expiresAt) {
		return model.ErrTokenNotFound
	}
	delete(f.fingerprints[accountID], fingerprint)
	return nil
}

func (f *fakeAccountStore) RemoveAllFingerprints(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.fingerprints, accountID)
	return nil
}

func (f *fakeAccountStore) fingerprintCount(accountID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fingerprints[accountID])
}

func newSessionService(t *testing.T, autoProvision bool) (*SessionService, *fakeAccountStore) {
	t.Helper()
	store := newFakeAccountStore()
	issuer := token.NewIssuer("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	return NewSessionService(store, issuer, autoProvision), store
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
}

func TestSessionServiceRegisterAndLogin(t *testing.T) {
	svc, store := newSessionService(t, false)
	ctx := context.Background()

	session, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, "Ada", session.Account.Name)
	assert.Equal(t, []string{model.RoleCustomer}, session.Account.Roles)
	assert.Equal(t, 1, store.fingerprintCount(session.Account.ID))

	login, err := svc.Login(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, session.Account.ID, login.Account.ID)
	assert.Equal(t, 2, store.fingerprintCount(session.Account.ID))

	_, err = svc.Login(ctx, "ada@example.com", "wrong-password")
	requireUnauthorized(t, err)
}

func TestSessionServiceRegisterValidation(t *testing.T) {
	svc, _ := newSessionService(t, false)
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "secret1", "Ada")
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)

	_, err = svc.Register(ctx, "ada@example.com", "short", "Ada")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestSessionServiceRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newSessionService(t, false)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "ada@example.com", "secret2", "Imposter")
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "CONFLICT", apiErr.Code)
}

func TestSessionServiceLoginUnknownEmail(t *testing.T) {
	svc, store := newSessionService(t, false)

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	requireUnauthorized(t, err)
	assert.Empty(t, store.accounts)
}

func TestSessionServiceAutoProvision(t *testing.T) {
	svc, store := newSessionService(t, true)
	ctx := context.Background()

	session, err := svc.Login(ctx, "admin@example.com", "secret1")
	require.NoError(t, err)
	assert.Contains(t, session.Account.Roles, model.RoleAdmin)
	assert.Len(t, store.accounts, 1)

	customer, err := svc.Login(ctx, "plain@example.com", "secret1")
	require.NoError(t, err)
	assert.NotContains(t, customer.Account.Roles, model.RoleAdmin)
}

func TestSessionServiceRefreshRotates(t *testing.T) {
	svc, store := newSessionService(t, false)
	ctx := context.Background()

	session, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, 1, store.fingerprintCount(session.Account.ID))

	// The consumed token is gone; replaying it must fail.
	_, err = svc.Refresh(ctx, session.RefreshToken)
	requireUnauthorized(t, err)

	// The replacement still works.
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestSessionServiceRefreshRejectsGarbage(t *testing.T) {
	svc, _ := newSessionService(t, false)
	ctx := context.Background()

	for _, raw := range []string{"", "   ", "not.a.jwt"} {
		_, err := svc.Refresh(ctx, raw)
		requireUnauthorized(t, err)
	}
}

func TestSessionServiceRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newSessionService(t, false)
	ctx := context.Background()

	session, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, session.AccessToken)
	requireUnauthorized(t, err)
}

func TestSessionServiceConcurrentRefreshSingleWinner(t *testing.T) {
	svc, _ := newSessionService(t, false)
	ctx := context.Background()

	session, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)

	const attempts = 8
	results := make(chan error, attempts)
	var start sync.WaitGroup
	start.Add(1)

	for i := 0; i < attempts; i++ {
		go func() {
			start.Wait()
			_, refreshErr := svc.Refresh(ctx, session.RefreshToken)
			results <- refreshErr
		}()
	}
	start.Done()

	wins := 0
	for i := 0; i < attempts; i++ {
		if <-results == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestSessionServiceLogoutRevokes(t *testing.T) {
	svc, store := newSessionService(t, false)
	ctx := context.Background()

	session, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.RefreshToken))
	assert.Equal(t, 0, store.fingerprintCount(session.Account.ID))

	_, err = svc.Refresh(ctx, session.RefreshToken)
	requireUnauthorized(t, err)

	// Second logout with the same token is already revoked.
	requireUnauthorized(t, svc.Logout(ctx, session.RefreshToken))
}

func TestSessionServiceLogoutEverywhere(t *testing.T) {
	svc, store := newSessionService(t, false)
	ctx := context.Background()

	session, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, 2, store.fingerprintCount(session.Account.ID))

	require.NoError(t, svc.LogoutEverywhere(ctx, session.Account.ID))

	_, err = svc.Refresh(ctx, session.RefreshToken)
	requireUnauthorized(t, err)
	_, err = svc.Refresh(ctx, second.RefreshToken)
	requireUnauthorized(t, err)
}

func TestSessionServiceUpdateProfile(t *testing.T) {
	svc, _ := newSessionService(t, false)
	ctx := context.Background()

	session, err := svc.Register(ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, session.Account.ID, "Ada L.", "+15550001111")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, "+15550001111", updated.Phone)

	_, err = svc.UpdateProfile(ctx, session.Account.ID, "   ", "")
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}
