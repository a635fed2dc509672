// Package codec maps ledger and catalog values to and from their JSON wire
// form using go-faster/jx.
package codec

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/token-register/internal/domain/apperr"
	"github.com/xenking/token-register/internal/domain/category"
	"github.com/xenking/token-register/internal/domain/order"
	"github.com/xenking/token-register/internal/domain/product"
)

// Request body errors.
var (
	ErrNotArray    = apperr.Validation("invalid request body: expected an array of cart items")
	ErrInvalidBody = apperr.Validation("invalid request body")
)

// DecodeCart parses a POST /api/orders body. The body must be a JSON array;
// unknown fields are ignored.
func DecodeCart(data []byte) ([]order.CartItem, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Array {
		return nil, ErrNotArray
	}

	items := make([]order.CartItem, 0)
	if err := d.Arr(func(d *jx.Decoder) error {
		var it order.CartItem
		if err := decodeCartItem(d, &it); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(ErrInvalidBody, err.Error())
	}

	return items, nil
}

func decodeCartItem(d *jx.Decoder, it *order.CartItem) error {
	if d.Next() != jx.Object {
		return errors.New("cart item must be an object")
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product":
			it.Product, err = decodeProduct(d)
		case "quantity":
			it.Quantity, err = d.Int()
		case "discountedAmount":
			it.DiscountedAmount, err = optInt64(d)
		case "discount":
			it.Discount, err = decodeDiscount(d)
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	if d.Next() != jx.Object {
		return p, errors.New("product must be an object")
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int64()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = d.Int64()
		case "categoryId":
			p.CategoryID, err = d.Int64()
		default:
			err = d.Skip()
		}
		return errors.Wrap(err, key)
	})
	return p, err
}

func decodeDiscount(d *jx.Decoder) (*order.Discount, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var disc order.Discount
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "type":
			t, err := d.Str()
			disc.Type = order.DiscountType(t)
			return err
		case "value":
			v, err := d.Int64()
			disc.Value = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	return &disc, nil
}

// optInt64 reads an integer, treating null as zero.
func optInt64(d *jx.Decoder) (int64, error) {
	if d.Next() == jx.Null {
		return 0, d.Null()
	}
	return d.Int64()
}

// DecodeCategory parses a category create or update body: {"name": string}.
func DecodeCategory(data []byte) (category.Category, error) {
	var c category.Category
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return c, ErrInvalidBody
	}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key == "name" {
			var err error
			c.Name, err = d.Str()
			return err
		}
		return d.Skip()
	}); err != nil {
		return c, errors.Wrap(ErrInvalidBody, err.Error())
	}
	return c, nil
}

// DecodeProduct parses a product create or update body:
// {"name": string, "price": int, "categoryId": int}.
func DecodeProduct(data []byte) (product.Product, error) {
	d := jx.DecodeBytes(data)
	p, err := decodeProduct(d)
	if err != nil {
		return p, errors.Wrap(ErrInvalidBody, err.Error())
	}
	return p, nil
}
