package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/token-register/internal/domain/category"
	"github.com/xenking/token-register/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (date) VALUES ($1) RETURNING id`

	insertOrderItemSQL = `INSERT INTO order_items
	(order_id, product_id, quantity, "discountedAmount", product_name, product_price, category_name)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	categoryNameSQL = `SELECT name FROM categories WHERE id = $1`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`
	deleteOrderSQL      = `DELETE FROM orders WHERE id = $1`

	countOrdersSQL = `SELECT COUNT(*) FROM orders`

	orderRowsSQL = `
	SELECT page.id, page.date,
	       oi.id, oi.product_id, oi.product_name, oi.product_price, oi.category_name,
	       oi.quantity, oi."discountedAmount"
	FROM page
	LEFT JOIN order_items AS oi ON oi.order_id = page.id
	ORDER BY page.date DESC, page.id DESC, oi.id`

	listOrderRowsSQL = `WITH page AS (
		SELECT id, date FROM orders
		ORDER BY date DESC, id DESC
		LIMIT $1 OFFSET $2
	)` + orderRowsSQL

	listOrderRowsBeforeSQL = `WITH page AS (
		SELECT id, date FROM orders
		WHERE (date, id) < ($2, $3)
		ORDER BY date DESC, id DESC
		LIMIT $1
	)` + orderRowsSQL
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Begin starts a read-write ledger transaction.
func (s *OrderStore) Begin(ctx context.Context) (order.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	return &orderTx{tx: tx}, nil
}

// BeginReadOnly starts a read-only transaction with a stable snapshot, so a
// count and the page that follows it agree.
func (s *OrderStore) BeginReadOnly(ctx context.Context) (order.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, errors.Wrap(err, "begin read-only")
	}
	return &orderTx{tx: tx}, nil
}

type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) InsertOrder(ctx context.Context, date int64) (int64, error) {
	var id int64
	if err := t.tx.QueryRow(ctx, insertOrderSQL, date).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// CategoryName runs under a savepoint: in PostgreSQL a failed statement
// aborts the enclosing transaction, and the lookup must not do that.
func (t *orderTx) CategoryName(ctx context.Context, categoryID int64) (string, error) {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return "", errors.Wrap(err, "savepoint")
	}

	var name string
	if err := sp.QueryRow(ctx, categoryNameSQL, categoryID).Scan(&name); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return "", errors.Wrap(rbErr, "rollback to savepoint")
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return "", category.ErrNotFound
		}
		return "", errors.Wrapf(err, "get category %d name", categoryID)
	}

	if err := sp.Commit(ctx); err != nil {
		return "", errors.Wrap(err, "release savepoint")
	}
	return name, nil
}

func (t *orderTx) InsertItem(ctx context.Context, it order.ItemRecord) error {
	_, err := t.tx.Exec(ctx, insertOrderItemSQL,
		it.OrderID, it.ProductID, it.Quantity, it.DiscountedAmount,
		it.ProductName, it.ProductPrice, it.CategoryName,
	)
	return err
}

func (t *orderTx) DeleteItems(ctx context.Context, orderID int64) (int64, error) {
	tag, err := t.tx.Exec(ctx, deleteOrderItemsSQL, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *orderTx) DeleteOrder(ctx context.Context, orderID int64) (int64, error) {
	tag, err := t.tx.Exec(ctx, deleteOrderSQL, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *orderTx) CountOrders(ctx context.Context) (int, error) {
	var n int64
	if err := t.tx.QueryRow(ctx, countOrdersSQL).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (t *orderTx) ListRows(ctx context.Context, limit, offset int) ([]order.Row, error) {
	rows, err := t.tx.Query(ctx, listOrderRowsSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanOrderRow)
}

func (t *orderTx) ListRowsBefore(ctx context.Context, limit int, before *order.Cursor) ([]order.Row, error) {
	if before == nil {
		return t.ListRows(ctx, limit, 0)
	}
	rows, err := t.tx.Query(ctx, listOrderRowsBeforeSQL, limit, before.Date, before.ID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanOrderRow)
}

func (t *orderTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *orderTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func scanOrderRow(row pgx.CollectableRow) (order.Row, error) {
	var (
		r            order.Row
		itemID       *int64
		productID    *int64
		productName  *string
		productPrice *int64
		categoryName *string
		quantity     *int32
		discounted   *int64
	)
	if err := row.Scan(
		&r.OrderID, &r.Date,
		&itemID, &productID, &productName, &productPrice, &categoryName,
		&quantity, &discounted,
	); err != nil {
		return r, err
	}

	if itemID == nil {
		return r, nil
	}

	r.Item = &order.Item{
		ProductID:        productID,
		ProductName:      deref(productName),
		ProductPrice:     deref(productPrice),
		CategoryName:     deref(categoryName),
		Quantity:         int(deref(quantity)),
		DiscountedAmount: deref(discounted),
	}
	return r, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
