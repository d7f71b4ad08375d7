package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-storefront/internal/model"
	"go-storefront/pkg/apierror"
)

const uniqueViolation = "23505"

// AccountRepository is the credential store: account records plus the set
// of currently valid refresh-token fingerprints per account.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, email, name, phone, password_hash, roles, created_at, updated_at`

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Phone, &a.PasswordHash, &a.Roles, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, apierror.NotFound("account not found", id)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("find account by id: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, apierror.NotFound("account not found", "")
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("find account by email: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a model.Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (id, email, name, phone, password_hash, roles, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Email, a.Name, a.Phone, a.PasswordHash, a.Roles, a.CreatedAt, a.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apierror.Conflict("email already registered", a.Email)
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, name string, phone string) (model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`UPDATE accounts SET name = $2, phone = $3, updated_at = $4 WHERE id = $1
		 RETURNING `+accountColumns, id, name, phone, time.Now().UTC()))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, apierror.NotFound("account not found", id)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("update profile: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) UpdateRoles(ctx context.Context, id string, roles []string) (model.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`UPDATE accounts SET roles = $2, updated_at = $3 WHERE id = $1
		 RETURNING `+accountColumns, id, roles, time.Now().UTC()))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, apierror.NotFound("account not found", id)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("update roles: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierror.NotFound("account not found", id)
	}
	return nil
}

func (r *AccountRepository) List(ctx context.Context, filter model.CustomerFilter) ([]model.Account, int, error) {
	where := []string{"TRUE"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.RegistrationDateFrom != nil {
		where = append(where, "created_at >= "+arg(*filter.RegistrationDateFrom))
	}
	if filter.RegistrationDateTo != nil {
		where = append(where, "created_at <= "+arg(*filter.RegistrationDateTo))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		where = append(where, "(email ILIKE "+arg(pattern)+" OR name ILIKE "+arg(pattern)+")")
	}

	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	sortField := "created_at"
	if filter.SortField == "name" || filter.SortField == "email" {
		sortField = filter.SortField
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s ORDER BY %s %s LIMIT %s OFFSET %s`,
		accountColumns, whereSQL, sortField, direction,
		arg(filter.Limit), arg((filter.Page-1)*filter.Limit))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]model.Account, 0)
	for rows.Next() {
		a, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("scan account: %w", scanErr)
		}
		accounts = append(accounts, a)
	}
	return accounts, total, rows.Err()
}

// AddFingerprint registers one more valid refresh token for the account.
// Multiple rows per account support multi-device sessions.
func (r *AccountRepository) AddFingerprint(ctx context.Context, accountID string, fingerprint string, issuedAt time.Time, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_fingerprints (fingerprint, account_id, issued_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		fingerprint, accountID, issuedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("add refresh fingerprint: %w", err)
	}
	return nil
}

// ConsumeFingerprint removes the fingerprint iff it is still present and
// unexpired. The single conditional DELETE is what serializes concurrent
// rotations: of two refreshes presenting the same token, exactly one
// affects a row.
func (r *AccountRepository) ConsumeFingerprint(ctx context.Context, accountID string, fingerprint string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_fingerprints
		 WHERE account_id = $1 AND fingerprint = $2 AND expires_at > now()`,
		accountID, fingerprint)
	if err != nil {
		return fmt.Errorf("consume refresh fingerprint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTokenNotFound
	}
	return nil
}

// RemoveAllFingerprints revokes every refresh token for the account,
// forcing a global logout.
func (r *AccountRepository) RemoveAllFingerprints(ctx context.Context, accountID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_fingerprints WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("remove refresh fingerprints: %w", err)
	}
	return nil
}

func (r *AccountRepository) CleanExpiredFingerprints(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_fingerprints WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired fingerprints: %w", err)
	}
	return tag.RowsAffected(), nil
}
