package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"go-storefront/internal/middleware"
	"go-storefront/internal/model"
	"go-storefront/internal/service"
	"go-storefront/pkg/apierror"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	var payload model.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	order, err := h.orders.Create(r.Context(), claims.AccountID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, order, nil)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := orderFilterFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	orders, total, err := h.orders.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, orders, model.NewMeta(filter.Page, filter.Limit, total))
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	filter, err := orderFilterFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	orders, total, err := h.orders.ListForCustomer(r.Context(), claims.AccountID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, orders, model.NewMeta(filter.Page, filter.Limit, total))
}

func (h *OrderHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	orderNumber, err := orderNumberParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	order, err := h.orders.GetByNumber(r.Context(), orderNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, order, nil)
}

// GetMineByNumber answers not-found for foreign orders; existence of a
// number outside the caller's own orders is not confirmed.
func (h *OrderHandler) GetMineByNumber(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	orderNumber, err := orderNumberParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	order, err := h.orders.GetForCustomer(r.Context(), claims.AccountID, orderNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, order, nil)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	orderNumber, err := orderNumberParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.UpdateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderNumber, payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, order, nil)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderNumber, err := orderNumberParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.orders.Delete(r.Context(), orderNumber); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}

func orderNumberParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "orderNumber")
	orderNumber, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || orderNumber <= 0 {
		return 0, apierror.BadRequest("invalid order number", raw)
	}
	return orderNumber, nil
}

func orderFilterFromQuery(r *http.Request) (model.OrderFilter, error) {
	q := r.URL.Query()
	filter := model.OrderFilter{
		Page:      queryInt(r, "page", 1),
		Limit:     queryInt(r, "limit", 10),
		SortField: q.Get("sortField"),
		SortOrder: q.Get("sortOrder"),
		Status:    q.Get("status"),
		Search:    q.Get("search"),
	}

	if raw := q.Get("totalAmountFrom"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.OrderFilter{}, apierror.BadRequest("invalid totalAmountFrom", raw)
		}
		filter.TotalAmountFrom = &v
	}
	if raw := q.Get("totalAmountTo"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.OrderFilter{}, apierror.BadRequest("invalid totalAmountTo", raw)
		}
		filter.TotalAmountTo = &v
	}
	if raw := q.Get("orderDateFrom"); raw != "" {
		v, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return model.OrderFilter{}, apierror.BadRequest("invalid orderDateFrom", raw)
		}
		filter.OrderDateFrom = &v
	}
	if raw := q.Get("orderDateTo"); raw != "" {
		v, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return model.OrderFilter{}, apierror.BadRequest("invalid orderDateTo", raw)
		}
		end := v.Add(24*time.Hour - time.Nanosecond)
		filter.OrderDateTo = &end
	}

	if len(filter.Search) > 64 {
		filter.Search = filter.Search[:64]
	}

	return filter, nil
}
