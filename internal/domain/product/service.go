package product

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/token-register/internal/domain/category"
)

// Service validates catalog mutations and checks category references.
type Service struct {
	products   Repository
	categories category.Repository
}

// NewService creates a product Service.
func NewService(products Repository, categories category.Repository) *Service {
	return &Service{
		products:   products,
		categories: categories,
	}
}

// List returns every product.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// ListByCategory returns the products of one category.
func (s *Service) ListByCategory(ctx context.Context, categoryID int64) ([]Product, error) {
	products, err := s.products.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, errors.Wrapf(err, "list products of category %d", categoryID)
	}
	return products, nil
}

// Get returns a single product or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return p, nil
}

// Create validates and stores a new product, returning its id.
func (s *Service) Create(ctx context.Context, p Product) (int64, error) {
	if err := s.validate(ctx, &p); err != nil {
		return 0, err
	}
	id, err := s.products.Create(ctx, p)
	if err != nil {
		return 0, errors.Wrap(err, "create product")
	}
	return id, nil
}

// Update validates and saves a product.
func (s *Service) Update(ctx context.Context, p Product) error {
	if err := s.validate(ctx, &p); err != nil {
		return err
	}
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "update product %d", p.ID)
	}
	return nil
}

// Delete removes a product. Order items referencing it keep their snapshots.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "delete product %d", id)
	}
	return nil
}

func (s *Service) validate(ctx context.Context, p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrNameRequired
	}
	if _, err := s.categories.GetByID(ctx, p.CategoryID); err != nil {
		if errors.Is(err, category.ErrNotFound) {
			return ErrUnknownCategory
		}
		return errors.Wrapf(err, "check category %d", p.CategoryID)
	}
	return nil
}
