// Package handler serves the register JSON API on a net/http ServeMux.
package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/token-register/internal/codec"
	"github.com/xenking/token-register/internal/domain/apperr"
	"github.com/xenking/token-register/internal/domain/category"
	"github.com/xenking/token-register/internal/domain/order"
	"github.com/xenking/token-register/internal/domain/product"
)

// maxBodySize caps request bodies read by the API routes.
const maxBodySize = 1 << 20

// OrderService is the order ledger behind the /api/orders routes.
type OrderService interface {
	CreateOrder(ctx context.Context, cart []order.CartItem) (*order.CreateResult, error)
	GetAllOrders(ctx context.Context, p order.Pagination) (*order.PaginatedOrders, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// CategoryService is the catalog behind the /api/categories routes.
type CategoryService interface {
	List(ctx context.Context) ([]category.Category, error)
	Get(ctx context.Context, id int64) (*category.Category, error)
	Create(ctx context.Context, name string) (int64, error)
	Update(ctx context.Context, c category.Category) error
	Delete(ctx context.Context, id int64) error
}

// ProductService is the catalog behind the /api/products routes.
type ProductService interface {
	List(ctx context.Context) ([]product.Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]product.Product, error)
	Get(ctx context.Context, id int64) (*product.Product, error)
	Create(ctx context.Context, p product.Product) (int64, error)
	Update(ctx context.Context, p product.Product) error
	Delete(ctx context.Context, id int64) error
}

// Handler maps HTTP requests onto the domain services.
type Handler struct {
	orders     OrderService
	categories CategoryService
	products   ProductService
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders OrderService, categories CategoryService, products ProductService) *Handler {
	return &Handler{
		orders:     orders,
		categories: categories,
		products:   products,
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("POST /api/orders", h.CreateOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.DeleteOrder)

	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.HandleFunc("POST /api/categories", h.CreateCategory)
	mux.HandleFunc("GET /api/categories/{id}", h.GetCategory)
	mux.HandleFunc("PUT /api/categories/{id}", h.UpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", h.DeleteCategory)
	mux.HandleFunc("GET /api/categories/{id}/products", h.ListCategoryProducts)

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("POST /api/products", h.CreateProduct)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.UpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.DeleteProduct)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps an error kind to its status code. Internal errors are
// logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *apperr.ValidationError
		notFound   *apperr.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, codec.MarshalError(http.StatusBadRequest, validation.Message))
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, codec.MarshalError(http.StatusNotFound, notFound.Message))
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError,
			codec.MarshalError(http.StatusInternalServerError, "internal server error"))
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(codec.ErrInvalidBody, err.Error())
	}
	return data, nil
}

// pathID parses the {id} wildcard. A non-integer id yields a ValidationError
// with the given message.
func pathID(r *http.Request, invalid string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, apperr.Validation(invalid)
	}
	return id, nil
}
