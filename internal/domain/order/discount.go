package order

import (
	"math"

	"github.com/go-faster/errors"
)

// DiscountType enumerates the supported line discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the line subtotal, rounded up
	// to the next whole token.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed number of tokens off the line.
	DiscountFixed DiscountType = "fixed"
)

// Discount is a till-entered discount rule for one cart line.
type Discount struct {
	Type  DiscountType
	Value int64
}

// Amount computes the discounted amount for a line with the given subtotal.
// It returns ErrInvalidDiscount when the rule cannot apply.
func (d Discount) Amount(subtotal int64) (int64, error) {
	if d.Value <= 0 || subtotal <= 0 {
		return 0, ErrInvalidDiscount
	}

	switch d.Type {
	case DiscountPercentage:
		if d.Value > 100 {
			return 0, ErrInvalidDiscount
		}
		// Split subtotal so the product never exceeds subtotal.
		q, r := subtotal/100, subtotal%100
		return q*d.Value + ceilDiv(r*d.Value, 100), nil
	case DiscountFixed:
		if d.Value > subtotal {
			return 0, ErrInvalidDiscount
		}
		return d.Value, nil
	default:
		return 0, errors.Wrapf(ErrInvalidDiscount, "unsupported discount type %q", d.Type)
	}
}

// validDiscount reports whether amount is an acceptable discount for a line.
// Zero is always accepted, including for negative-price refund lines.
func validDiscount(amount, subtotal int64) bool {
	if amount == 0 {
		return true
	}
	return amount > 0 && amount <= subtotal
}

// lineSubtotal returns quantity × price, or false when quantity does not fit
// the ledger's quantity column or the product overflows int64.
func lineSubtotal(quantity int, price int64) (int64, bool) {
	if quantity > MaxQuantity || quantity < -MaxQuantity {
		return 0, false
	}
	q := int64(quantity)
	if q == 0 || price == 0 {
		return 0, true
	}
	if price == math.MinInt64 {
		return 0, false
	}
	v := q * price
	if v/price != q {
		return 0, false
	}
	return v, true
}

// ceilDiv divides two positive integers rounding up.
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
