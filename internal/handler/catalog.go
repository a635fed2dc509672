package handler

import (
	"net/http"

	"github.com/xenking/token-register/internal/codec"
)

const (
	invalidCategoryID = "invalid category ID format"
	invalidProductID  = "invalid product ID format"
)

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.categories.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codec.MarshalCategories(cs))
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, invalidCategoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.categories.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codec.MarshalCategory(*c))
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := codec.DecodeCategory(data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.categories.Create(r.Context(), c.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, codec.MarshalCreated(id))
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, invalidCategoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := codec.DecodeCategory(data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = id
	if err := h.categories.Update(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, invalidCategoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.categories.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategoryProducts serves GET /api/categories/{id}/products. An unknown
// category yields an empty list.
func (h *Handler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, invalidCategoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ps, err := h.products.ListByCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codec.MarshalProducts(ps))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codec.MarshalProducts(ps))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, invalidProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codec.MarshalProduct(*p))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := codec.DecodeProduct(data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.products.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, codec.MarshalCreated(id))
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, invalidProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := codec.DecodeProduct(data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = id
	if err := h.products.Update(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, invalidProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
