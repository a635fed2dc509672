package category

import (
	"context"

	"github.com/xenking/token-register/internal/domain/apperr"
)

var (
	// ErrNotFound is returned when a requested category does not exist.
	ErrNotFound = apperr.NotFound("category not found")
	// ErrNameRequired is returned when a category is saved without a name.
	ErrNameRequired = apperr.Validation("category name is required")
)

// Category groups products on the register.
type Category struct {
	ID   int64
	Name string
}

// Repository defines persistence operations for categories.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id int64) (*Category, error)
	Create(ctx context.Context, name string) (int64, error)
	// Update returns ErrNotFound when no row matched.
	Update(ctx context.Context, c Category) error
	// Delete removes the category and, by cascade, its products. Past order
	// items keep their snapshots. Returns ErrNotFound when no row matched.
	Delete(ctx context.Context, id int64) error
}
