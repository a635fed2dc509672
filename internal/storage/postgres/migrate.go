package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/token-register/internal/domain/order"
)

const listItemColumnsSQL = `SELECT column_name FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = 'order_items'`

// snapshotColumns lists the columns added to order_items after the first
// release, with the DDL that adds each one.
var snapshotColumns = []struct {
	name string
	ddl  string
}{
	{name: "discountedAmount", ddl: `ALTER TABLE order_items ADD COLUMN IF NOT EXISTS "discountedAmount" BIGINT NOT NULL DEFAULT 0`},
	{name: "product_name", ddl: `ALTER TABLE order_items ADD COLUMN IF NOT EXISTS product_name TEXT`},
	{name: "product_price", ddl: `ALTER TABLE order_items ADD COLUMN IF NOT EXISTS product_price BIGINT`},
	{name: "category_name", ddl: `ALTER TABLE order_items ADD COLUMN IF NOT EXISTS category_name TEXT`},
}

const (
	relaxProductIDSQL = `ALTER TABLE order_items ALTER COLUMN product_id DROP NOT NULL`

	// The first release keyed order_items by (order_id, product_id), which
	// forbids a NULL product_id.
	itemConstraintsSQL = `SELECT c.conname FROM pg_constraint AS c
	WHERE c.conrelid = 'order_items'::regclass AND c.contype::text = $1::text
	  AND ($2::text = '' OR EXISTS (
	      SELECT 1 FROM pg_attribute AS a
	      WHERE a.attrelid = c.conrelid AND a.attnum = ANY (c.conkey) AND a.attname::text = $2::text))`
	addItemIDSQL      = `ALTER TABLE order_items ADD COLUMN id BIGSERIAL PRIMARY KEY`
	addItemUniqueSQL  = `ALTER TABLE order_items ADD CONSTRAINT order_items_order_id_product_id_key UNIQUE (order_id, product_id)`
	unlinkDanglingSQL = `UPDATE order_items AS oi SET product_id = NULL
	WHERE oi.product_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM products AS p WHERE p.id = oi.product_id)`
	addProductFKSQL = `ALTER TABLE order_items ADD CONSTRAINT order_items_product_id_fkey
	FOREIGN KEY (product_id) REFERENCES products (id) ON DELETE SET NULL`

	backfillLiveSQL = `UPDATE order_items AS oi
	SET product_name  = p.name,
	    product_price = p.price,
	    category_name = COALESCE(c.name, $1)
	FROM products AS p
	LEFT JOIN categories AS c ON c.id = p.category_id
	WHERE oi.product_id = p.id AND oi.product_name IS NULL`

	backfillDeletedSQL = `UPDATE order_items
	SET product_name  = $1,
	    product_price = 0,
	    category_name = COALESCE(category_name, $2)
	WHERE product_name IS NULL`
)

// MigrateSnapshotColumns upgrades order_items when schema introspection shows
// snapshot columns missing or the first-release (order_id, product_id) key.
// In one transaction it rekeys the table on a surrogate id, adds the missing
// columns, and backfills existing rows: rows whose product still exists copy
// the current catalog data, the rest get the deleted-product fallbacks.
// Product references that no longer resolve are cleared and the product
// foreign key is recreated with ON DELETE SET NULL. When the table already
// has the current shape it does nothing.
func MigrateSnapshotColumns(ctx context.Context, pool *pgxpool.Pool, lg *zap.Logger) error {
	shape, err := inspectOrderItems(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "inspect order_items columns")
	}
	if shape.current() {
		lg.Debug("Snapshot columns present, skipping migration")
		return nil
	}

	lg.Info("Migrating order_items snapshot columns",
		zap.Strings("missing", shape.missing),
		zap.Bool("legacy_key", shape.legacyKey),
	)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin migration")
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			lg.Error("Migration rollback failed", zap.Error(err))
		}
	}()

	if shape.legacyKey {
		if err := rekeyOrderItems(ctx, tx); err != nil {
			return errors.Wrap(err, "rekey order_items")
		}
	}
	for _, col := range snapshotColumns {
		if _, err := tx.Exec(ctx, col.ddl); err != nil {
			return errors.Wrapf(err, "add column %s", col.name)
		}
	}
	if _, err := tx.Exec(ctx, relaxProductIDSQL); err != nil {
		return errors.Wrap(err, "relax product_id")
	}

	live, err := tx.Exec(ctx, backfillLiveSQL, order.UnknownCategory)
	if err != nil {
		return errors.Wrap(err, "backfill from catalog")
	}
	deleted, err := tx.Exec(ctx, backfillDeletedSQL, order.UnknownDeletedProduct, order.UnknownCategory)
	if err != nil {
		return errors.Wrap(err, "backfill deleted products")
	}

	if shape.legacyKey {
		if err := relinkProducts(ctx, tx); err != nil {
			return errors.Wrap(err, "relink products")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit migration")
	}

	lg.Info("Snapshot columns migrated",
		zap.Int64("backfilled_from_catalog", live.RowsAffected()),
		zap.Int64("backfilled_deleted", deleted.RowsAffected()),
	)
	return nil
}

// rekeyOrderItems replaces the composite primary key with a surrogate id and
// keeps (order_id, product_id) unique. Existing rows get ids in table order.
func rekeyOrderItems(ctx context.Context, tx pgx.Tx) error {
	if err := dropConstraints(ctx, tx, "p", ""); err != nil {
		return errors.Wrap(err, "drop primary key")
	}
	if _, err := tx.Exec(ctx, addItemIDSQL); err != nil {
		return errors.Wrap(err, "add id")
	}
	if _, err := tx.Exec(ctx, addItemUniqueSQL); err != nil {
		return errors.Wrap(err, "add unique key")
	}
	return nil
}

// relinkProducts lets product deletion null out order_items.product_id.
func relinkProducts(ctx context.Context, tx pgx.Tx) error {
	if err := dropConstraints(ctx, tx, "f", "product_id"); err != nil {
		return errors.Wrap(err, "drop product foreign key")
	}
	if _, err := tx.Exec(ctx, unlinkDanglingSQL); err != nil {
		return errors.Wrap(err, "clear dangling product ids")
	}
	if _, err := tx.Exec(ctx, addProductFKSQL); err != nil {
		return errors.Wrap(err, "add product foreign key")
	}
	return nil
}

// dropConstraints drops the order_items constraints of the given pg_constraint
// type, restricted to those covering column when it is non-empty.
func dropConstraints(ctx context.Context, tx pgx.Tx, contype, column string) error {
	rows, err := tx.Query(ctx, itemConstraintsSQL, contype, column)
	if err != nil {
		return err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, err := tx.Exec(ctx, "ALTER TABLE order_items DROP CONSTRAINT "+pgx.Identifier{name}.Sanitize()); err != nil {
			return errors.Wrapf(err, "drop constraint %s", name)
		}
	}
	return nil
}

// itemsShape is what introspection found on order_items.
type itemsShape struct {
	missing   []string
	legacyKey bool
}

func (s itemsShape) current() bool {
	return len(s.missing) == 0 && !s.legacyKey
}

func inspectOrderItems(ctx context.Context, pool *pgxpool.Pool) (itemsShape, error) {
	rows, err := pool.Query(ctx, listItemColumnsSQL)
	if err != nil {
		return itemsShape{}, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return itemsShape{}, err
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	shape := itemsShape{legacyKey: !present["id"]}
	for _, col := range snapshotColumns {
		if !present[col.name] {
			shape.missing = append(shape.missing, col.name)
		}
	}
	return shape, nil
}
