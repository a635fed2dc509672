package product

import (
	"context"

	"github.com/xenking/token-register/internal/domain/apperr"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = apperr.NotFound("product not found")
	// ErrNameRequired is returned when a product is saved without a name.
	ErrNameRequired = apperr.Validation("product name is required")
	// ErrUnknownCategory is returned when a product references a missing category.
	ErrUnknownCategory = apperr.Validation("category does not exist")
)

// Product represents a catalog item sold on the register. Price is expressed
// in integer token units and is negative for refund items such as a returned
// eco-cup.
type Product struct {
	ID         int64
	Name       string
	Price      int64
	CategoryID int64
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, p Product) (int64, error)
	// Update returns ErrNotFound when no row matched. Existing order items
	// are never touched.
	Update(ctx context.Context, p Product) error
	// Delete returns ErrNotFound when no row matched.
	Delete(ctx context.Context, id int64) error
}
