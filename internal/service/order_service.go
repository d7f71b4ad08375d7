package service

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-storefront/internal/model"
	"go-storefront/pkg/apierror"
)

var phonePattern = regexp.MustCompile(`^\+?\d{7,15}$`)

type orderStore interface {
	Create(ctx context.Context, o model.Order) (model.Order, error)
	FindByNumber(ctx context.Context, orderNumber int64, customerID string) (model.Order, error)
	List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error)
	UpdateStatus(ctx context.Context, orderNumber int64, status string) (model.Order, error)
	Delete(ctx context.Context, orderNumber int64) error
}

type OrderService struct {
	orders   orderStore
	products productStore
}

func NewOrderService(orders orderStore, products productStore) *OrderService {
	return &OrderService{orders: orders, products: products}
}

func (s *OrderService) Create(ctx context.Context, customerID string, req model.CreateOrderRequest) (model.Order, error) {
	if len(req.Items) == 0 {
		return model.Order{}, apierror.BadRequest("items are required", "")
	}
	if req.Payment != model.PaymentCard && req.Payment != model.PaymentOnline {
		return model.Order{}, apierror.BadRequest("payment must be card or online", req.Payment)
	}
	if !strings.Contains(req.Email, "@") {
		return model.Order{}, apierror.BadRequest("email must be valid", "")
	}

	phone := normalizePhone(req.Phone)
	if !phonePattern.MatchString(phone) {
		return model.Order{}, apierror.BadRequest("phone format is invalid", "")
	}
	if strings.TrimSpace(req.Address) == "" {
		return model.Order{}, apierror.BadRequest("address is required", "")
	}

	products, err := s.products.FindByIDs(ctx, req.Items)
	if err != nil {
		return model.Order{}, err
	}

	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	total := 0.0
	for _, id := range req.Items {
		product, exists := byID[id]
		if !exists {
			return model.Order{}, apierror.BadRequest("unknown product in order", id)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		items = append(items, model.OrderItem{ProductID: product.ID, Title: product.Title, Price: product.Price})
		total += product.Price
	}

	now := time.Now().UTC()
	order := model.Order{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		Status:      model.OrderStatusNew,
		TotalAmount: total,
		Payment:     req.Payment,
		Email:       strings.TrimSpace(req.Email),
		Phone:       phone,
		Address:     strings.TrimSpace(req.Address),
		Comment:     strings.TrimSpace(req.Comment),
		Products:    items,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return s.orders.Create(ctx, order)
}

func (s *OrderService) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)
	if filter.Status != "" && !slices.Contains(model.ValidOrderStatuses, filter.Status) {
		return nil, 0, apierror.BadRequest("invalid status filter", filter.Status)
	}
	return s.orders.List(ctx, filter)
}

func (s *OrderService) ListForCustomer(ctx context.Context, customerID string, filter model.OrderFilter) ([]model.Order, int, error) {
	filter.CustomerID = customerID
	return s.List(ctx, filter)
}

func (s *OrderService) GetByNumber(ctx context.Context, orderNumber int64) (model.Order, error) {
	return s.orders.FindByNumber(ctx, orderNumber, "")
}

// GetForCustomer hides orders the customer does not own behind the same
// not-found as a genuinely missing order, so the response never confirms
// another customer's order number exists.
func (s *OrderService) GetForCustomer(ctx context.Context, customerID string, orderNumber int64) (model.Order, error) {
	return s.orders.FindByNumber(ctx, orderNumber, customerID)
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderNumber int64, status string) (model.Order, error) {
	if !slices.Contains(model.ValidOrderStatuses, status) {
		return model.Order{}, apierror.BadRequest("invalid order status", status)
	}
	return s.orders.UpdateStatus(ctx, orderNumber, status)
}

func (s *OrderService) Delete(ctx context.Context, orderNumber int64) error {
	return s.orders.Delete(ctx, orderNumber)
}

func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
