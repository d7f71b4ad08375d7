package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"go-storefront/internal/model"
	"go-storefront/internal/service"
	"go-storefront/pkg/apierror"
)

type CustomerHandler struct {
	customers *service.CustomerService
}

func NewCustomerHandler(customers *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.CustomerFilter{
		Page:      queryInt(r, "page", 1),
		Limit:     queryInt(r, "limit", 10),
		SortField: q.Get("sortField"),
		SortOrder: q.Get("sortOrder"),
		Search:    q.Get("search"),
	}

	if raw := q.Get("registrationDateFrom"); raw != "" {
		v, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, apierror.BadRequest("invalid registrationDateFrom", raw))
			return
		}
		filter.RegistrationDateFrom = &v
	}
	if raw := q.Get("registrationDateTo"); raw != "" {
		v, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, apierror.BadRequest("invalid registrationDateTo", raw))
			return
		}
		end := v.Add(24*time.Hour - time.Nanosecond)
		filter.RegistrationDateTo = &end
	}

	customers, total, err := h.customers.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, customers, model.NewMeta(filter.Page, filter.Limit, total))
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, customer, nil)
}

func (h *CustomerHandler) UpdateRoles(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.UpdateRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	customer, err := h.customers.UpdateRoles(r.Context(), chi.URLParam(r, "id"), payload.Roles)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, customer, nil)
}

func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.customers.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": true}, nil)
}
