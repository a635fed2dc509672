package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/token-register/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, price, category_id FROM products ORDER BY id`

	listProductsByCategorySQL = `SELECT id, name, price, category_id FROM products
		WHERE category_id = $1 ORDER BY id`

	getProductByIDSQL = `SELECT id, name, price, category_id FROM products WHERE id = $1`

	insertProductSQL = `INSERT INTO products (name, price, category_id) VALUES ($1, $2, $3) RETURNING id`

	updateProductSQL = `UPDATE products SET name = $2, price = $3, category_id = $4 WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "listing products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListByCategory returns the products of one category ordered by ID.
func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsByCategorySQL, categoryID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing products of category %d", categoryID)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "getting product %d", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting product %d", id)
	}
	return &p, nil
}

// Create inserts a product and returns its id.
func (r *ProductRepository) Create(ctx context.Context, p product.Product) (int64, error) {
	var id int64
	if err := r.pool.QueryRow(ctx, insertProductSQL, p.Name, p.Price, p.CategoryID).Scan(&id); err != nil {
		return 0, errors.Wrap(err, "inserting product")
	}
	return id, nil
}

// Update overwrites a product's catalog data. Order items are untouched.
func (r *ProductRepository) Update(ctx context.Context, p product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL, p.ID, p.Name, p.Price, p.CategoryID)
	if err != nil {
		return errors.Wrapf(err, "updating product %d", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product. order_items.product_id is set to NULL by the
// foreign key.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return errors.Wrapf(err, "deleting product %d", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.CategoryID)
	return p, err
}
