package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/token-register/internal/domain/apperr"
	"github.com/xenking/token-register/internal/domain/category"
	"github.com/xenking/token-register/internal/domain/order"
	"github.com/xenking/token-register/internal/domain/product"
)

type fakeOrders struct {
	cart       []order.CartItem
	pagination order.Pagination
	deletedID  int64

	createErr error
	listErr   error
	deleteErr error
	page      *order.PaginatedOrders
}

func (f *fakeOrders) CreateOrder(_ context.Context, cart []order.CartItem) (*order.CreateResult, error) {
	f.cart = cart
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &order.CreateResult{ID: 42}, nil
}

func (f *fakeOrders) GetAllOrders(_ context.Context, p order.Pagination) (*order.PaginatedOrders, error) {
	f.pagination = p
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.page != nil {
		return f.page, nil
	}
	return &order.PaginatedOrders{Data: []order.Order{}, Pagination: order.PageInfo{CurrentPage: p.Page, PageSize: p.PageSize}}, nil
}

func (f *fakeOrders) DeleteOrder(_ context.Context, id int64) error {
	f.deletedID = id
	return f.deleteErr
}

type fakeCategories struct {
	items   map[int64]category.Category
	updated category.Category
}

func (f *fakeCategories) List(context.Context) ([]category.Category, error) {
	out := make([]category.Category, 0, len(f.items))
	for id := int64(1); id <= int64(len(f.items)); id++ {
		out = append(out, f.items[id])
	}
	return out, nil
}

func (f *fakeCategories) Get(_ context.Context, id int64) (*category.Category, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, category.ErrNotFound
	}
	return &c, nil
}

func (f *fakeCategories) Create(_ context.Context, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, category.ErrNameRequired
	}
	id := int64(len(f.items) + 1)
	f.items[id] = category.Category{ID: id, Name: name}
	return id, nil
}

func (f *fakeCategories) Update(_ context.Context, c category.Category) error {
	if _, ok := f.items[c.ID]; !ok {
		return category.ErrNotFound
	}
	f.updated = c
	return nil
}

func (f *fakeCategories) Delete(_ context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return category.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeProducts struct {
	items   []product.Product
	created product.Product
}

func (f *fakeProducts) List(context.Context) ([]product.Product, error) {
	return f.items, nil
}

func (f *fakeProducts) ListByCategory(_ context.Context, categoryID int64) ([]product.Product, error) {
	out := make([]product.Product, 0)
	for _, p := range f.items {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Get(_ context.Context, id int64) (*product.Product, error) {
	for _, p := range f.items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (f *fakeProducts) Create(_ context.Context, p product.Product) (int64, error) {
	if p.CategoryID != 1 {
		return 0, product.ErrUnknownCategory
	}
	f.created = p
	return 7, nil
}

func (f *fakeProducts) Update(context.Context, product.Product) error { return nil }

func (f *fakeProducts) Delete(_ context.Context, id int64) error {
	if _, err := f.Get(context.Background(), id); err != nil {
		return err
	}
	return nil
}

type fixture struct {
	orders     *fakeOrders
	categories *fakeCategories
	products   *fakeProducts
	mux        *http.ServeMux
}

func newFixture() *fixture {
	f := &fixture{
		orders: &fakeOrders{},
		categories: &fakeCategories{items: map[int64]category.Category{
			1: {ID: 1, Name: "Boissons"},
			2: {ID: 2, Name: "Snacks"},
		}},
		products: &fakeProducts{items: []product.Product{
			{ID: 1, Name: "Cola", Price: 2, CategoryID: 1},
			{ID: 2, Name: "Chips", Price: 1, CategoryID: 2},
		}},
		mux: http.NewServeMux(),
	}
	NewHandler(f.orders, f.categories, f.products).Register(f.mux)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func TestCreateOrder(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/orders",
		`[{"product": {"id": 1, "name": "Cola", "price": 2, "categoryId": 1}, "quantity": 3, "discountedAmount": 0}]`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id": 42}`, w.Body.String())
	require.Len(t, f.orders.cart, 1)
	assert.Equal(t, 3, f.orders.cart[0].Quantity)
	assert.Equal(t, "Cola", f.orders.cart[0].Product.Name)
}

func TestCreateOrder_NotArray(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPost, "/api/orders", `{"product": {"id": 1}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code": 400, "message": "invalid request body: expected an array of cart items"}`, w.Body.String())
	assert.Nil(t, f.orders.cart, "service must not be called")
}

func TestCreateOrder_ValidationError(t *testing.T) {
	f := newFixture()
	f.orders.createErr = order.ErrEmptyCart

	w := f.do(http.MethodPost, "/api/orders", `[]`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code": 400, "message": "no items in the cart"}`, w.Body.String())
}

func TestCreateOrder_InternalError(t *testing.T) {
	f := newFixture()
	f.orders.createErr = errors.Wrap(errors.New("connection reset"), "create order")

	w := f.do(http.MethodPost, "/api/orders", `[{"quantity": 1}]`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code": 500, "message": "internal server error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestListOrders(t *testing.T) {
	f := newFixture()
	pid := int64(1)
	f.orders.page = &order.PaginatedOrders{
		Data: []order.Order{{
			ID:   3,
			Date: time.UnixMilli(1700000000000),
			Items: []order.Item{
				{ProductID: &pid, ProductName: "Cola", ProductPrice: 2, CategoryName: "Boissons", Quantity: 2, DiscountedAmount: 1},
			},
		}},
		Pagination: order.PageInfo{CurrentPage: 1, PageSize: 20, TotalCount: 1, TotalPages: 1},
	}

	w := f.do(http.MethodGet, "/api/orders", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.DefaultPagination(), f.orders.pagination)
	assert.JSONEq(t, `{
		"data": [{"id": 3, "date": 1700000000000, "total": 3, "items": [
			{"productId": 1, "productName": "Cola", "productPrice": 2, "categoryName": "Boissons",
			 "quantity": 2, "discountedAmount": 1, "lineTotal": 3}
		]}],
		"pagination": {"currentPage": 1, "pageSize": 20, "totalCount": 1, "totalPages": 1}
	}`, w.Body.String())
}

func TestListOrders_Pagination(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/orders?page=3&pageSize=50", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.Pagination{Page: 3, PageSize: 50}, f.orders.pagination)

	w = f.do(http.MethodGet, "/api/orders?pageSize=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.Pagination{Page: 1, PageSize: 5}, f.orders.pagination)
}

func TestListOrders_BadQuery(t *testing.T) {
	f := newFixture()

	for _, target := range []string{"/api/orders?page=abc", "/api/orders?pageSize=1.5"} {
		w := f.do(http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.JSONEq(t, `{"code": 400, "message": "invalid pagination parameters"}`, w.Body.String())
	}

	f.orders.listErr = order.ErrInvalidPageSize
	w := f.do(http.MethodGet, "/api/orders?pageSize=500", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code": 400, "message": "invalid page size"}`, w.Body.String())
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodDelete, "/api/orders/12", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, int64(12), f.orders.deletedID)
}

func TestDeleteOrder_InvalidID(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodDelete, "/api/orders/abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code": 400, "message": "invalid order ID format"}`, w.Body.String())
	assert.Zero(t, f.orders.deletedID)
}

func TestDeleteOrder_NotFound(t *testing.T) {
	f := newFixture()
	f.orders.deleteErr = apperr.NotFoundf("order with ID %d not found", 99)

	w := f.do(http.MethodDelete, "/api/orders/99", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code": 404, "message": "order with ID 99 not found"}`, w.Body.String())
}

func TestCategories(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/categories", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id": 1, "name": "Boissons"}, {"id": 2, "name": "Snacks"}]`, w.Body.String())

	w = f.do(http.MethodGet, "/api/categories/2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id": 2, "name": "Snacks"}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/categories/9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code": 404, "message": "category not found"}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/categories/x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code": 400, "message": "invalid category ID format"}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/categories", `{"name": "Desserts"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id": 3}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/categories", `{"name": "  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code": 400, "message": "category name is required"}`, w.Body.String())

	w = f.do(http.MethodPut, "/api/categories/1", `{"name": "Drinks"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, category.Category{ID: 1, Name: "Drinks"}, f.categories.updated)

	w = f.do(http.MethodDelete, "/api/categories/2", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodDelete, "/api/categories/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProducts(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodGet, "/api/categories/1/products", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id": 1, "name": "Cola", "price": 2, "categoryId": 1}]`, w.Body.String())

	w = f.do(http.MethodGet, "/api/categories/8/products", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = f.do(http.MethodGet, "/api/products/2", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id": 2, "name": "Chips", "price": 1, "categoryId": 2}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/products/5", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/api/products", `{"name": "Eau", "price": 1, "categoryId": 1}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id": 7}`, w.Body.String())
	assert.Equal(t, product.Product{Name: "Eau", Price: 1, CategoryID: 1}, f.products.created)

	w = f.do(http.MethodPost, "/api/products", `{"name": "Eau", "price": 1, "categoryId": 4}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code": 400, "message": "category does not exist"}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/products", `{"name": "Eau", "price": "one"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code": 400, "message": "invalid request body"}`, w.Body.String())

	w = f.do(http.MethodDelete, "/api/products/zz", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code": 400, "message": "invalid product ID format"}`, w.Body.String())
}

func TestUnknownMethod(t *testing.T) {
	f := newFixture()

	w := f.do(http.MethodPatch, "/api/orders", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
