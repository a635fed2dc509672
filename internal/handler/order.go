package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/xenking/token-register/internal/codec"
	"github.com/xenking/token-register/internal/domain/apperr"
	"github.com/xenking/token-register/internal/domain/order"
)

var errInvalidPagination = apperr.Validation("invalid pagination parameters")

// ListOrders serves GET /api/orders?page=&pageSize=. Missing parameters take
// the ledger defaults; range checks are left to the ledger.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, err := parsePagination(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := h.orders.GetAllOrders(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codec.MarshalPaginatedOrders(page))
}

func parsePagination(q url.Values) (order.Pagination, error) {
	p := order.DefaultPagination()
	for key, dst := range map[string]*int{"page": &p.Page, "pageSize": &p.PageSize} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return p, errInvalidPagination
		}
		*dst = v
	}
	return p, nil
}

// CreateOrder serves POST /api/orders with a JSON array of cart items and
// answers 201 {"id": ...}.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cart, err := codec.DecodeCart(data)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.orders.CreateOrder(r.Context(), cart)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, codec.MarshalCreated(res.ID))
}

// DeleteOrder serves DELETE /api/orders/{id} and answers 204.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "invalid order ID format")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
