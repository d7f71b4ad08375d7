package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-storefront/internal/model"
	"go-storefront/pkg/apierror"
)

func newProductService() (*ProductService, *fakeProductStore) {
	store := &fakeProductStore{products: make(map[string]model.Product)}
	return NewProductService(store), store
}

func TestProductCreate(t *testing.T) {
	svc, store := newProductService()

	product, err := svc.Create(context.Background(), model.CreateProductRequest{
		Title:       "  Teapot  ",
		Description: "Ceramic",
		Price:       19.99,
	})
	require.NoError(t, err)
	assert.Equal(t, "Teapot", product.Title)
	assert.NotEmpty(t, product.ID)
	assert.Contains(t, store.products, product.ID)
}

func TestProductCreateValidation(t *testing.T) {
	svc, _ := newProductService()
	ctx := context.Background()

	var apiErr *apierror.APIError
	_, err := svc.Create(ctx, model.CreateProductRequest{Title: "   "})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)

	_, err = svc.Create(ctx, model.CreateProductRequest{Title: "Teapot", Price: -1})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestProductUpdatePartial(t *testing.T) {
	svc, _ := newProductService()
	ctx := context.Background()

	product, err := svc.Create(ctx, model.CreateProductRequest{Title: "Teapot", Price: 10})
	require.NoError(t, err)

	newPrice := 12.5
	updated, err := svc.Update(ctx, product.ID, model.UpdateProductRequest{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, "Teapot", updated.Title)
	assert.Equal(t, 12.5, updated.Price)

	empty := "  "
	_, err = svc.Update(ctx, product.ID, model.UpdateProductRequest{Title: &empty})
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
}

func TestProductListClampsPagination(t *testing.T) {
	page, limit := clampPage(-3, 500)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)

	page, limit = clampPage(2, 5)
	assert.Equal(t, 2, page)
	assert.Equal(t, 5, limit)
}
