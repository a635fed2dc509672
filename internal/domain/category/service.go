package category

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// Service validates category mutations before delegating to the Repository.
type Service struct {
	repo Repository
}

// NewService creates a category Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every category.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list categories")
	}
	return categories, nil
}

// Get returns a single category or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get category %d", id)
	}
	return c, nil
}

// Create stores a new category and returns its id.
func (s *Service) Create(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrNameRequired
	}
	id, err := s.repo.Create(ctx, name)
	if err != nil {
		return 0, errors.Wrap(err, "create category")
	}
	return id, nil
}

// Update renames a category.
func (s *Service) Update(ctx context.Context, c Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ErrNameRequired
	}
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "update category %d", c.ID)
	}
	return nil
}

// Delete removes a category together with its products.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "delete category %d", id)
	}
	return nil
}
