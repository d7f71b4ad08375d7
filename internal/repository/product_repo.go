package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-storefront/internal/model"
	"go-storefront/pkg/apierror"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, title, description, category, price, image, created_at, updated_at`

func scanProduct(row pgx.Row) (model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.Price, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, apierror.NotFound("product not found", id)
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0, len(ids))
	for rows.Next() {
		p, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan product: %w", scanErr)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		filter.Limit, (filter.Page-1)*filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		p, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("scan product: %w", scanErr)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *ProductRepository) Create(ctx context.Context, p model.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, title, description, category, price, image, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Title, p.Description, p.Category, p.Price, p.Image, p.CreatedAt, p.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apierror.Conflict("product title already exists", p.Title)
	}
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p model.Product) (model.Product, error) {
	updated, err := scanProduct(r.pool.QueryRow(ctx,
		`UPDATE products SET title = $2, description = $3, category = $4, price = $5, image = $6, updated_at = $7
		 WHERE id = $1 RETURNING `+productColumns,
		p.ID, p.Title, p.Description, p.Category, p.Price, p.Image, time.Now().UTC()))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Product{}, apierror.NotFound("product not found", p.ID)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return model.Product{}, apierror.Conflict("product title already exists", p.Title)
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierror.NotFound("product not found", id)
	}
	return nil
}
