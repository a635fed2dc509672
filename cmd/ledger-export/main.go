package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/token-register/internal/codec"
	"github.com/xenking/token-register/internal/domain/order"
	"github.com/xenking/token-register/internal/storage/postgres"
)

const (
	pageBuffer    = 4
	progressEvery = 1_000
)

// pager is the read side of the order ledger.
type pager interface {
	OrdersBefore(ctx context.Context, before *order.Cursor, limit int) ([]order.Order, error)
}

func main() {
	var (
		databaseURL string
		outFile     string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outFile, "out", "orders.ndjson.gz", "output file for the gzip-compressed NDJSON export")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, outFile); err != nil {
		slog.Error("ledger export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("ledger export completed successfully", slog.String("out", outFile))
}

func run(ctx context.Context, databaseURL, outFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	svc, err := order.NewService(postgres.NewOrderStore(pool), zap.NewNop(), otel.Meter("ledger-export"))
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	f, err := os.Create(outFile)
	if err != nil {
		return errors.Wrapf(err, "create %s", outFile)
	}
	defer func() { _ = f.Close() }()

	gz := pgzip.NewWriter(f)
	n, err := export(ctx, svc, gz)
	if err != nil {
		_ = gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "flush gzip stream")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", outFile)
	}

	slog.Info("orders exported", slog.Int("count", n))
	return nil
}

// export streams every order, most recent first, to w as one JSON object per
// line. Pages are fetched concurrently with encoding.
func export(ctx context.Context, src pager, w io.Writer) (int, error) {
	pages := make(chan []order.Order, pageBuffer)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(pages)
		return fetchPages(ctx, src, pages)
	})

	var written int
	g.Go(func() error {
		var err error
		written, err = writeOrders(pages, w)
		return err
	})

	if err := g.Wait(); err != nil {
		return written, err
	}
	return written, nil
}

// fetchPages walks the ledger by (date, id) cursor, so orders created or
// deleted while the export runs never shift later pages. Orders created after
// the first page is read are newer than the cursor and are not exported.
func fetchPages(ctx context.Context, src pager, out chan<- []order.Order) error {
	var cursor *order.Cursor
	for page := 1; ; page++ {
		orders, err := src.OrdersBefore(ctx, cursor, order.MaxPageSize)
		if err != nil {
			return errors.Wrapf(err, "fetch page %d", page)
		}
		if len(orders) == 0 {
			return nil
		}

		select {
		case out <- orders:
		case <-ctx.Done():
			return ctx.Err()
		}

		if len(orders) < order.MaxPageSize {
			return nil
		}
		next := orders[len(orders)-1].Cursor()
		cursor = &next
	}
}

// writeOrders drains pages until the channel closes. On a write error it keeps
// draining so the producer is never blocked.
func writeOrders(pages <-chan []order.Order, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	var (
		e     jx.Encoder
		count int
		werr  error
	)
	for page := range pages {
		if werr != nil {
			continue
		}
		for _, o := range page {
			e.Reset()
			codec.EncodeOrder(&e, o)
			if _, err := bw.Write(e.Bytes()); err != nil {
				werr = errors.Wrapf(err, "write order %d", o.ID)
				break
			}
			if err := bw.WriteByte('\n'); err != nil {
				werr = errors.Wrapf(err, "write order %d", o.ID)
				break
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("export progress", slog.Int("orders", count))
			}
		}
	}
	if werr != nil {
		return count, werr
	}
	if err := bw.Flush(); err != nil {
		return count, errors.Wrap(err, "flush export")
	}
	return count, nil
}
