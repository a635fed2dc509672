package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/token-register/internal/domain/apperr"
	"github.com/xenking/token-register/internal/domain/category"
	"github.com/xenking/token-register/internal/domain/order"
	"github.com/xenking/token-register/internal/domain/product"
)

func TestDecodeCart(t *testing.T) {
	body := `[
		{"product": {"id": 1, "name": "Cola", "price": 2, "categoryId": 1}, "quantity": 3, "discountedAmount": 1},
		{"product": {"id": 5, "name": "Eau", "price": 1, "categoryId": 1, "extra": true}, "quantity": 1,
		 "discount": {"type": "percentage", "value": 50}},
		{"product": {"id": 7, "name": "Retour", "price": -1, "categoryId": 5}, "quantity": 2, "discountedAmount": null, "discount": null}
	]`

	items, err := DecodeCart([]byte(body))
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, order.CartItem{
		Product:          product.Product{ID: 1, Name: "Cola", Price: 2, CategoryID: 1},
		Quantity:         3,
		DiscountedAmount: 1,
	}, items[0])
	require.NotNil(t, items[1].Discount)
	assert.Equal(t, order.Discount{Type: order.DiscountPercentage, Value: 50}, *items[1].Discount)
	assert.Equal(t, int64(-1), items[2].Product.Price)
	assert.Zero(t, items[2].DiscountedAmount)
	assert.Nil(t, items[2].Discount)
}

func TestDecodeCart_Empty(t *testing.T) {
	items, err := DecodeCart([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDecodeCart_NotArray(t *testing.T) {
	for _, body := range []string{`{}`, `"cart"`, `42`, `null`, ``} {
		t.Run(body, func(t *testing.T) {
			_, err := DecodeCart([]byte(body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotArray)
			assert.Equal(t, "invalid request body: expected an array of cart items", err.Error())
		})
	}
}

func TestDecodeCart_Malformed(t *testing.T) {
	for name, body := range map[string]string{
		"ItemNotObject":   `[1]`,
		"QuantityString":  `[{"quantity": "3"}]`,
		"ProductNotObj":   `[{"product": []}]`,
		"Truncated":       `[{"product": {"id": 1`,
		"DiscountInvalid": `[{"discount": {"value": "x"}}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCart([]byte(body))
			require.Error(t, err)
			assert.True(t, apperr.IsValidation(err))
			assert.ErrorIs(t, err, ErrInvalidBody)
		})
	}
}

func TestDecodeCategory(t *testing.T) {
	c, err := DecodeCategory([]byte(`{"name": "Snacks", "id": 9}`))
	require.NoError(t, err)
	assert.Equal(t, "Snacks", c.Name)
	assert.Zero(t, c.ID)

	_, err = DecodeCategory([]byte(`["Snacks"]`))
	assert.ErrorIs(t, err, ErrInvalidBody)
}

func TestDecodeProduct(t *testing.T) {
	p, err := DecodeProduct([]byte(`{"name": "Chips", "price": 3, "categoryId": 2}`))
	require.NoError(t, err)
	assert.Equal(t, product.Product{Name: "Chips", Price: 3, CategoryID: 2}, p)

	_, err = DecodeProduct([]byte(`{"price": "3"}`))
	assert.ErrorIs(t, err, ErrInvalidBody)
}

func TestMarshalOrder(t *testing.T) {
	pid := int64(1)
	o := order.Order{
		ID:   7,
		Date: time.UnixMilli(1700000000123),
		Items: []order.Item{
			{ProductID: &pid, ProductName: "Cola", ProductPrice: 2, CategoryName: "Boissons", Quantity: 3, DiscountedAmount: 1},
			{ProductName: "Chips", ProductPrice: 4, CategoryName: "Unknown Category", Quantity: 1},
		},
	}

	assert.JSONEq(t, `{
		"id": 7,
		"date": 1700000000123,
		"total": 9,
		"items": [
			{"productId": 1, "productName": "Cola", "productPrice": 2, "categoryName": "Boissons",
			 "quantity": 3, "discountedAmount": 1, "lineTotal": 5},
			{"productId": null, "productName": "Chips", "productPrice": 4, "categoryName": "Unknown Category",
			 "quantity": 1, "discountedAmount": 0, "lineTotal": 4}
		]
	}`, string(MarshalOrder(o)))
}

func TestMarshalPaginatedOrders(t *testing.T) {
	p := &order.PaginatedOrders{
		Data:       []order.Order{},
		Pagination: order.PageInfo{CurrentPage: 4, PageSize: 20, TotalCount: 45, TotalPages: 3},
	}
	assert.JSONEq(t,
		`{"data": [], "pagination": {"currentPage": 4, "pageSize": 20, "totalCount": 45, "totalPages": 3}}`,
		string(MarshalPaginatedOrders(p)),
	)
}

func TestMarshalSmallBodies(t *testing.T) {
	assert.JSONEq(t, `{"id": 12}`, string(MarshalCreated(12)))
	assert.JSONEq(t, `{"code": 404, "message": "order with ID 3 not found"}`,
		string(MarshalError(404, "order with ID 3 not found")))
	assert.JSONEq(t, `[{"id": 1, "name": "Boissons"}]`,
		string(MarshalCategories([]category.Category{{ID: 1, Name: "Boissons"}})))
	assert.JSONEq(t, `[]`, string(MarshalProducts(nil)))
	assert.JSONEq(t, `{"id": 2, "name": "Retour Eco-cup", "price": -1, "categoryId": 5}`,
		string(MarshalProduct(product.Product{ID: 2, Name: "Retour Eco-cup", Price: -1, CategoryID: 5})))
}
