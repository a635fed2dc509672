package codec

import (
	"github.com/go-faster/jx"

	"github.com/xenking/token-register/internal/domain/category"
	"github.com/xenking/token-register/internal/domain/order"
	"github.com/xenking/token-register/internal/domain/product"
)

// EncodeOrder writes o as {id, date, total, items}. Date is epoch millis.
func EncodeOrder(e *jx.Encoder, o order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("date", func(e *jx.Encoder) { e.Int64(o.Date.UnixMilli()) })
		e.Field("total", func(e *jx.Encoder) { e.Int64(o.Total()) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					encodeItem(e, it)
				}
			})
		})
	})
}

func encodeItem(e *jx.Encoder, it order.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) {
			if it.ProductID == nil {
				e.Null()
				return
			}
			e.Int64(*it.ProductID)
		})
		e.Field("productName", func(e *jx.Encoder) { e.Str(it.ProductName) })
		e.Field("productPrice", func(e *jx.Encoder) { e.Int64(it.ProductPrice) })
		e.Field("categoryName", func(e *jx.Encoder) { e.Str(it.CategoryName) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("discountedAmount", func(e *jx.Encoder) { e.Int64(it.DiscountedAmount) })
		e.Field("lineTotal", func(e *jx.Encoder) { e.Int64(it.LineTotal()) })
	})
}

// MarshalOrder returns the JSON form of a single order.
func MarshalOrder(o order.Order) []byte {
	var e jx.Encoder
	EncodeOrder(&e, o)
	return e.Bytes()
}

// MarshalPaginatedOrders returns {data: [...], pagination: {...}}.
func MarshalPaginatedOrders(p *order.PaginatedOrders) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("data", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, o := range p.Data {
					EncodeOrder(e, o)
				}
			})
		})
		e.Field("pagination", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("currentPage", func(e *jx.Encoder) { e.Int(p.Pagination.CurrentPage) })
				e.Field("pageSize", func(e *jx.Encoder) { e.Int(p.Pagination.PageSize) })
				e.Field("totalCount", func(e *jx.Encoder) { e.Int(p.Pagination.TotalCount) })
				e.Field("totalPages", func(e *jx.Encoder) { e.Int(p.Pagination.TotalPages) })
			})
		})
	})
	return e.Bytes()
}

// MarshalCreated returns {"id": id}.
func MarshalCreated(id int64) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(id) })
	})
	return e.Bytes()
}

// MarshalError returns {"code": code, "message": msg}.
func MarshalError(code int, msg string) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	return e.Bytes()
}

func encodeCategory(e *jx.Encoder, c category.Category) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(c.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(c.Name) })
	})
}

// MarshalCategory returns {id, name}.
func MarshalCategory(c category.Category) []byte {
	var e jx.Encoder
	encodeCategory(&e, c)
	return e.Bytes()
}

// MarshalCategories returns a JSON array of categories.
func MarshalCategories(cs []category.Category) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, c := range cs {
			encodeCategory(e, c)
		}
	})
	return e.Bytes()
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { e.Int64(p.Price) })
		e.Field("categoryId", func(e *jx.Encoder) { e.Int64(p.CategoryID) })
	})
}

// MarshalProduct returns {id, name, price, categoryId}.
func MarshalProduct(p product.Product) []byte {
	var e jx.Encoder
	encodeProduct(&e, p)
	return e.Bytes()
}

// MarshalProducts returns a JSON array of products.
func MarshalProducts(ps []product.Product) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, p := range ps {
			encodeProduct(e, p)
		}
	})
	return e.Bytes()
}
