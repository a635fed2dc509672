package order

import (
	"context"
	"math"
	"time"

	"github.com/xenking/token-register/internal/domain/product"
)

// Snapshot fallbacks written when catalog data cannot be resolved.
const (
	UnknownCategory       = "Unknown Category"
	UnknownDeletedProduct = "Unknown Product (Deleted)"
)

// Order is a committed register sale. It always holds at least one item and
// is immutable once created.
type Order struct {
	ID    int64
	Date  time.Time
	Items []Item
}

// Total returns the sum of the line totals after discounts.
func (o Order) Total() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.LineTotal()
	}
	return total
}

// Item is a persisted order line. Product name, price and category name are
// snapshots taken at order time; ProductID is nil once the product has been
// deleted from the catalog.
type Item struct {
	ProductID        *int64
	ProductName      string
	ProductPrice     int64
	CategoryName     string
	Quantity         int
	DiscountedAmount int64
}

// Subtotal returns quantity × price before discount.
func (i Item) Subtotal() int64 {
	return int64(i.Quantity) * i.ProductPrice
}

// LineTotal returns the subtotal reduced by the discounted amount.
func (i Item) LineTotal() int64 {
	return i.Subtotal() - i.DiscountedAmount
}

// CartItem is a not-yet-persisted line proposed by the till. Product carries
// the catalog data the caller saw at add-to-cart time.
type CartItem struct {
	Product          product.Product
	Quantity         int
	DiscountedAmount int64
	// Discount, when set, is resolved into DiscountedAmount during validation.
	Discount *Discount
}

// CreateResult holds the output of a successfully created order.
type CreateResult struct {
	ID int64
}

// Pagination selects one page of the order ledger.
type Pagination struct {
	Page     int
	PageSize int
}

// Page sizing limits for GetAllOrders.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MaxQuantity is the largest quantity a single order item can hold.
const MaxQuantity = math.MaxInt32

// DefaultPagination returns the first page with the default page size.
func DefaultPagination() Pagination {
	return Pagination{Page: DefaultPage, PageSize: DefaultPageSize}
}

// Cursor is a position in the ledger's (date, id) ordering.
type Cursor struct {
	Date int64
	ID   int64
}

// Cursor returns the position of o.
func (o Order) Cursor() Cursor {
	return Cursor{Date: o.Date.UnixMilli(), ID: o.ID}
}

// PageInfo describes where a page sits in the ledger.
type PageInfo struct {
	CurrentPage int
	PageSize    int
	TotalCount  int
	TotalPages  int
}

// PaginatedOrders is one page of orders, most recent first.
type PaginatedOrders struct {
	Data       []Order
	Pagination PageInfo
}

// ItemRecord is the row written to order_items for one cart line.
type ItemRecord struct {
	OrderID          int64
	ProductID        int64
	Quantity         int
	DiscountedAmount int64
	ProductName      string
	ProductPrice     int64
	CategoryName     string
}

// Row is one flat result of the orders ⟕ order_items join. Item is nil when
// the order has no item rows.
type Row struct {
	OrderID int64
	Date    int64
	Item    *Item
}

// Store opens ledger transactions. Every service call acquires exactly one
// transaction and finishes it before returning.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	BeginReadOnly(ctx context.Context) (Tx, error)
}

// Tx is a single ledger transaction. Rollback after Commit is a no-op.
type Tx interface {
	// InsertOrder creates an orders row and returns its id.
	InsertOrder(ctx context.Context, date int64) (int64, error)
	// CategoryName looks up the current name of a category. A failed lookup
	// must leave the transaction usable.
	CategoryName(ctx context.Context, categoryID int64) (string, error)
	InsertItem(ctx context.Context, item ItemRecord) error
	// DeleteItems and DeleteOrder return the number of rows removed.
	DeleteItems(ctx context.Context, orderID int64) (int64, error)
	DeleteOrder(ctx context.Context, orderID int64) (int64, error)
	CountOrders(ctx context.Context) (int, error)
	// ListRows returns the joined rows of the limit/offset window of orders
	// ordered by date descending, items in insertion order.
	ListRows(ctx context.Context, limit, offset int) ([]Row, error)
	// ListRowsBefore is ListRows over the orders strictly older than before
	// in (date, id) order, starting from the newest when before is nil.
	ListRowsBefore(ctx context.Context, limit int, before *Cursor) ([]Row, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
