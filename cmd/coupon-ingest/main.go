package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		cfg         ingestConfig
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory searched for coupons*.csv.gz when no files are given")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&cfg.ExpectedCodes, "expected-codes", 1_000_000, "expected distinct codes per file, sizes the bloom filters")
	flag.Float64Var(&cfg.FalsePositiveRate, "fpr", 0.001, "bloom filter false positive rate")
	flag.IntVar(&cfg.BatchSize, "batch-size", 1000, "coupons upserted per batch")
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

	if err := run(ctx, dataDir, flag.Args(), databaseURL, cfg); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, dataDir string, files []string, databaseURL string, cfg ingestConfig) error {
	if len(files) == 0 {
		matches, err := filepath.Glob(filepath.Join(dataDir, "coupons*.csv.gz"))
		if err != nil {
			return errors.Wrap(err, "glob data dir")
		}
		slices.Sort(matches)
		files = matches
	}
	if len(files) == 0 {
		slog.Info("no coupon files to ingest", slog.String("data_dir", dataDir))
		return nil
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	stats, err := ingest(ctx, files, postgres.NewCouponRepository(pool), cfg)
	if err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Int("rows", stats.Rows),
		slog.Int("invalid", stats.Invalid),
		slog.Int("written", stats.Written),
		slog.Int("deferred", stats.Deferred),
	)
	return nil
}
