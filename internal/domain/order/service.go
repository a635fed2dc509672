package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/token-register/internal/domain/apperr"
)

// Validation errors, raised before any transaction is opened.
var (
	ErrEmptyCart       = apperr.Validation("no items in the cart")
	ErrInvalidQuantity = apperr.Validation("invalid product quantity")
	ErrInvalidDiscount = apperr.Validation("invalid discount amount")
	ErrInvalidPage     = apperr.Validation("invalid page")
	ErrInvalidPageSize = apperr.Validation("invalid page size")
)

// errNoOrderID is returned when the orders insert yields no id.
var errNoOrderID = errors.New("failed to create order record")

// Service implements the order ledger: creation from a cart, paginated
// listing and deletion, each inside its own transaction.
type Service struct {
	store Store
	lg    *zap.Logger
	now   func() time.Time

	ordersCreated     metric.Int64Counter
	itemsCreated      metric.Int64Counter
	ordersDeleted     metric.Int64Counter
	categoryFallbacks metric.Int64Counter
}

// NewService creates an order ledger Service.
func NewService(store Store, lg *zap.Logger, meter metric.Meter) (*Service, error) {
	s := &Service{
		store: store,
		lg:    lg,
		now:   time.Now,
	}

	var err error
	if s.ordersCreated, err = meter.Int64Counter("ledger.orders.created",
		metric.WithDescription("Orders committed to the ledger"),
	); err != nil {
		return nil, errors.Wrap(err, "orders created counter")
	}
	if s.itemsCreated, err = meter.Int64Counter("ledger.order_items.created",
		metric.WithDescription("Order items committed to the ledger"),
	); err != nil {
		return nil, errors.Wrap(err, "order items created counter")
	}
	if s.ordersDeleted, err = meter.Int64Counter("ledger.orders.deleted",
		metric.WithDescription("Orders removed from the ledger"),
	); err != nil {
		return nil, errors.Wrap(err, "orders deleted counter")
	}
	if s.categoryFallbacks, err = meter.Int64Counter("ledger.category_lookup.fallbacks",
		metric.WithDescription("Order items snapshotted with the fallback category name"),
	); err != nil {
		return nil, errors.Wrap(err, "category fallback counter")
	}

	return s, nil
}

// CreateOrder validates the cart, then inserts the order row and one item row
// per cart line in a single transaction. Item rows snapshot the product name
// and price from the cart and the category name resolved from the catalog.
func (s *Service) CreateOrder(ctx context.Context, cart []CartItem) (*CreateResult, error) {
	lines, err := validateCart(cart)
	if err != nil {
		return nil, err
	}

	var orderID int64
	err = s.inTx(ctx, s.store.Begin, func(tx Tx) error {
		id, err := tx.InsertOrder(ctx, s.now().UnixMilli())
		if err != nil {
			return errors.Wrap(err, "insert order")
		}
		if id == 0 {
			return errNoOrderID
		}
		orderID = id

		for _, line := range lines {
			rec := ItemRecord{
				OrderID:          id,
				ProductID:        line.Product.ID,
				Quantity:         line.Quantity,
				DiscountedAmount: line.DiscountedAmount,
				ProductName:      line.Product.Name,
				ProductPrice:     line.Product.Price,
				CategoryName:     s.resolveCategoryName(ctx, tx, id, line.Product.CategoryID),
			}
			if err := tx.InsertItem(ctx, rec); err != nil {
				return errors.Wrapf(err, "insert item for product %d", rec.ProductID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.ordersCreated.Add(ctx, 1)
	s.itemsCreated.Add(ctx, int64(len(lines)))
	s.lg.Info("Order created",
		zap.Int64("order_id", orderID),
		zap.Int("items", len(lines)),
	)

	return &CreateResult{ID: orderID}, nil
}

// resolveCategoryName is a best-effort lookup: any failure yields the
// fallback name and never aborts the order.
func (s *Service) resolveCategoryName(ctx context.Context, tx Tx, orderID, categoryID int64) string {
	name, err := tx.CategoryName(ctx, categoryID)
	if err == nil && name != "" {
		return name
	}

	s.categoryFallbacks.Add(ctx, 1)
	fields := []zap.Field{
		zap.Int64("order_id", orderID),
		zap.Int64("category_id", categoryID),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.lg.Warn("Category name unresolved, using fallback", fields...)

	return UnknownCategory
}

// GetAllOrders returns one page of orders, most recent first, with their
// items. The count and the page are read from the same read-only transaction.
func (s *Service) GetAllOrders(ctx context.Context, p Pagination) (*PaginatedOrders, error) {
	if p.Page < 1 {
		return nil, ErrInvalidPage
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return nil, ErrInvalidPageSize
	}

	var (
		total int
		pages int
		rows  []Row
	)
	err := s.inTx(ctx, s.store.BeginReadOnly, func(tx Tx) error {
		var err error
		if total, err = tx.CountOrders(ctx); err != nil {
			return errors.Wrap(err, "count orders")
		}
		pages = (total + p.PageSize - 1) / p.PageSize
		if p.Page > pages {
			return nil
		}
		// Page is at most pages here, so the offset stays below total.
		if rows, err = tx.ListRows(ctx, p.PageSize, (p.Page-1)*p.PageSize); err != nil {
			return errors.Wrap(err, "list order rows")
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch orders")
	}

	return &PaginatedOrders{
		Data: foldRows(rows),
		Pagination: PageInfo{
			CurrentPage: p.Page,
			PageSize:    p.PageSize,
			TotalCount:  total,
			TotalPages:  pages,
		},
	}, nil
}

// OrdersBefore returns up to limit orders older than before, most recent
// first. A nil cursor starts from the newest order. Pages chained through the
// last order's Cursor neither skip nor repeat orders when others are inserted
// or deleted in between.
func (s *Service) OrdersBefore(ctx context.Context, before *Cursor, limit int) ([]Order, error) {
	if limit < 1 || limit > MaxPageSize {
		return nil, ErrInvalidPageSize
	}

	var rows []Row
	err := s.inTx(ctx, s.store.BeginReadOnly, func(tx Tx) error {
		var err error
		if rows, err = tx.ListRowsBefore(ctx, limit, before); err != nil {
			return errors.Wrap(err, "list order rows")
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch orders")
	}
	return foldRows(rows), nil
}

// DeleteOrder removes an order and all its items atomically. When no orders
// row matched, the transaction is rolled back so orphaned item rows stay
// untouched, and a NotFoundError is returned unwrapped.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	err := s.inTx(ctx, s.store.Begin, func(tx Tx) error {
		if _, err := tx.DeleteItems(ctx, id); err != nil {
			return errors.Wrap(err, "delete items")
		}
		n, err := tx.DeleteOrder(ctx, id)
		if err != nil {
			return errors.Wrap(err, "delete order row")
		}
		if n == 0 {
			return apperr.NotFoundf("order with ID %d not found", id)
		}
		return nil
	})
	if err != nil {
		if apperr.IsNotFound(err) {
			return err
		}
		return errors.Wrap(err, "delete order")
	}

	s.ordersDeleted.Add(ctx, 1)
	s.lg.Info("Order deleted", zap.Int64("order_id", id))
	return nil
}

// inTx runs fn inside one transaction obtained from begin. The transaction is
// committed when fn succeeds and rolled back otherwise; rollback failures are
// logged and do not mask the original error.
func (s *Service) inTx(ctx context.Context, begin func(context.Context) (Tx, error), fn func(Tx) error) error {
	tx, err := begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	if err := fn(tx); err != nil {
		s.rollback(ctx, tx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		s.rollback(ctx, tx)
		return errors.Wrap(err, "commit")
	}
	return nil
}

func (s *Service) rollback(ctx context.Context, tx Tx) {
	// Roll back even if the request context is already cancelled.
	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.lg.Error("Rollback failed", zap.Error(err))
	}
}

// validateCart resolves discount rules and checks every line. Validation is
// global: one offending line rejects the whole cart. Discounts are checked
// before quantities, except that a line whose subtotal cannot be represented
// is rejected as an invalid quantity straight away.
func validateCart(cart []CartItem) ([]CartItem, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]CartItem, len(cart))
	copy(lines, cart)

	for i := range lines {
		line := &lines[i]
		subtotal, ok := lineSubtotal(line.Quantity, line.Product.Price)
		if !ok {
			return nil, ErrInvalidQuantity
		}

		if line.Discount != nil {
			amount, err := line.Discount.Amount(subtotal)
			if err != nil {
				return nil, ErrInvalidDiscount
			}
			if line.DiscountedAmount != 0 && line.DiscountedAmount != amount {
				return nil, ErrInvalidDiscount
			}
			line.DiscountedAmount = amount
		}

		if !validDiscount(line.DiscountedAmount, subtotal) {
			return nil, ErrInvalidDiscount
		}
	}

	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	return lines, nil
}

// foldRows groups flat join rows into orders, keeping the first-seen order of
// orders and the row order of items.
func foldRows(rows []Row) []Order {
	orders := make([]Order, 0)
	index := make(map[int64]int)

	for _, row := range rows {
		i, ok := index[row.OrderID]
		if !ok {
			i = len(orders)
			index[row.OrderID] = i
			orders = append(orders, Order{
				ID:    row.OrderID,
				Date:  time.UnixMilli(row.Date),
				Items: make([]Item, 0, 1),
			})
		}
		if row.Item != nil {
			orders[i].Items = append(orders[i].Items, *row.Item)
		}
	}

	return orders
}
