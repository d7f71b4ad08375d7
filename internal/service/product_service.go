package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-storefront/internal/model"
	"go-storefront/pkg/apierror"
)

type productStore interface {
	FindByID(ctx context.Context, id string) (model.Product, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error)
	Create(ctx context.Context, p model.Product) error
	Update(ctx context.Context, p model.Product) (model.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductService struct {
	products productStore
}

func NewProductService(products productStore) *ProductService {
	return &ProductService{products: products}
}

func (s *ProductService) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error) {
	filter.Page, filter.Limit = clampPage(filter.Page, filter.Limit)
	return s.products.List(ctx, filter)
}

func (s *ProductService) Create(ctx context.Context, req model.CreateProductRequest) (model.Product, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Product{}, apierror.BadRequest("title is required", "")
	}
	if req.Price < 0 {
		return model.Product{}, apierror.BadRequest("price cannot be negative", "")
	}

	now := time.Now().UTC()
	product := model.Product{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Price:       req.Price,
		Image:       strings.TrimSpace(req.Image),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return model.Product{}, err
	}
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id string, req model.UpdateProductRequest) (model.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return model.Product{}, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return model.Product{}, apierror.BadRequest("title cannot be empty", "")
		}
		product.Title = title
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return model.Product{}, apierror.BadRequest("price cannot be negative", "")
		}
		product.Price = *req.Price
	}
	if req.Image != nil {
		product.Image = strings.TrimSpace(*req.Image)
	}

	return s.products.Update(ctx, product)
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	return s.products.Delete(ctx, id)
}

// clampPage mirrors the storefront's pagination contract: pages start at
// one, page size is capped at ten.
func clampPage(page int, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 10 {
		limit = 10
	}
	return page, limit
}
