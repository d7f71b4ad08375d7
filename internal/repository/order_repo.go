package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-storefront/internal/model"
	"go-storefront/pkg/apierror"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, order_number, customer_id, status, total_amount, payment, email, phone, address, comment, created_at, updated_at`

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.TotalAmount,
		&o.Payment, &o.Email, &o.Phone, &o.Address, &o.Comment, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Create inserts the order and its items in one transaction and returns
// the order with its generated order number.
func (r *OrderRepository) Create(ctx context.Context, o model.Order) (model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("begin create order: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanOrder(tx.QueryRow(ctx,
		`INSERT INTO orders (id, customer_id, status, total_amount, payment, email, phone, address, comment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+orderColumns,
		o.ID, o.CustomerID, o.Status, o.TotalAmount, o.Payment, o.Email, o.Phone, o.Address, o.Comment, o.CreatedAt, o.UpdatedAt))
	if err != nil {
		return model.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Products {
		if _, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, product_id, title, price) VALUES ($1, $2, $3, $4)`,
			o.ID, item.ProductID, item.Title, item.Price); err != nil {
			return model.Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, fmt.Errorf("commit create order: %w", err)
	}

	created.Products = o.Products
	return created, nil
}

// FindByNumber loads one order. When customerID is non-empty the lookup is
// scoped to that customer, so a foreign order comes back as not-found
// rather than forbidden.
func (r *OrderRepository) FindByNumber(ctx context.Context, orderNumber int64, customerID string) (model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	args := []any{orderNumber}
	if customerID != "" {
		query += ` AND customer_id = $2`
		args = append(args, customerID)
	}

	o, err := scanOrder(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, apierror.NotFound("order not found", strconv.FormatInt(orderNumber, 10))
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("find order: %w", err)
	}

	if err := r.attachItems(ctx, []*model.Order{&o}); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	where := []string{"TRUE"}
	args := []any{}

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CustomerID != "" {
		where = append(where, "o.customer_id = "+arg(filter.CustomerID))
	}
	if filter.Status != "" {
		where = append(where, "o.status = "+arg(filter.Status))
	}
	if filter.TotalAmountFrom != nil {
		where = append(where, "o.total_amount >= "+arg(*filter.TotalAmountFrom))
	}
	if filter.TotalAmountTo != nil {
		where = append(where, "o.total_amount <= "+arg(*filter.TotalAmountTo))
	}
	if filter.OrderDateFrom != nil {
		where = append(where, "o.created_at >= "+arg(*filter.OrderDateFrom))
	}
	if filter.OrderDateTo != nil {
		where = append(where, "o.created_at <= "+arg(*filter.OrderDateTo))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		clause := `EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.title ILIKE ` + arg(pattern) + `)`
		if number, err := strconv.ParseInt(filter.Search, 10, 64); err == nil {
			clause = "(" + clause + " OR o.order_number = " + arg(number) + ")"
		}
		where = append(where, clause)
	}

	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	sortField := "created_at"
	switch filter.SortField {
	case "totalAmount", "total_amount":
		sortField = "total_amount"
	case "orderNumber", "order_number":
		sortField = "order_number"
	case "status":
		sortField = "status"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM orders o WHERE %s ORDER BY o.%s %s LIMIT %s OFFSET %s`,
		orderColumnsPrefixed(), whereSQL, sortField, direction,
		arg(filter.Limit), arg((filter.Page-1)*filter.Limit))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0)
	for rows.Next() {
		o, scanErr := scanOrder(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("scan order: %w", scanErr)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	refs := make([]*model.Order, len(orders))
	for idx := range orders {
		refs[idx] = &orders[idx]
	}
	if err := r.attachItems(ctx, refs); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, orderNumber int64, status string) (model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE order_number = $1 RETURNING `+orderColumns,
		orderNumber, status))

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Order{}, apierror.NotFound("order not found", strconv.FormatInt(orderNumber, 10))
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("update order status: %w", err)
	}

	if err := r.attachItems(ctx, []*model.Order{&o}); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderRepository) Delete(ctx context.Context, orderNumber int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE order_number = $1`, orderNumber)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierror.NotFound("order not found", strconv.FormatInt(orderNumber, 10))
	}
	return nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*model.Order, len(orders))
	for idx, o := range orders {
		ids[idx] = o.ID
		byID[o.ID] = o
		o.Products = []model.OrderItem{}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, title, price FROM order_items WHERE order_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item model.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Title, &item.Price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, exists := byID[orderID]; exists {
			o.Products = append(o.Products, item)
		}
	}
	return rows.Err()
}

func orderColumnsPrefixed() string {
	cols := strings.Split(orderColumns, ", ")
	for idx, col := range cols {
		cols[idx] = "o." + col
	}
	return strings.Join(cols, ", ")
}
