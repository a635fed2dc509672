package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/token-register/internal/domain/category"
)

const (
	listCategoriesSQL  = `SELECT id, name FROM categories ORDER BY id`
	getCategoryByIDSQL = `SELECT id, name FROM categories WHERE id = $1`
	insertCategorySQL  = `INSERT INTO categories (name) VALUES ($1) RETURNING id`
	updateCategorySQL  = `UPDATE categories SET name = $2 WHERE id = $1`
	deleteCategorySQL  = `DELETE FROM categories WHERE id = $1`
	countCategoriesSQL = `SELECT COUNT(*) FROM categories`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// List returns all categories ordered by ID.
func (r *CategoryRepository) List(ctx context.Context) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing categories")
	}
	return pgx.CollectRows(rows, scanCategory)
}

// GetByID returns a single category, or category.ErrNotFound.
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	rows, err := r.pool.Query(ctx, getCategoryByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting category %d", id)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting category %d", id)
	}
	return &c, nil
}

// Create inserts a category and returns its id.
func (r *CategoryRepository) Create(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, insertCategorySQL, name).Scan(&id); err != nil {
		return 0, errors.Wrap(err, "inserting category")
	}
	return id, nil
}

// Update renames a category.
func (r *CategoryRepository) Update(ctx context.Context, c category.Category) error {
	tag, err := r.pool.Exec(ctx, updateCategorySQL, c.ID, c.Name)
	if err != nil {
		return errors.Wrapf(err, "updating category %d", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}
	return nil
}

// Delete removes a category; its products go with it through ON DELETE
// CASCADE, and their order items keep the snapshots with product_id nulled.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteCategorySQL, id)
	if err != nil {
		return errors.Wrapf(err, "deleting category %d", id)
	}
	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}
	return nil
}

// Count returns the number of categories.
func (r *CategoryRepository) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countCategoriesSQL).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "counting categories")
	}
	return int(n), nil
}

func scanCategory(row pgx.CollectableRow) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.Name)
	return c, err
}
