package main

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const progressEvery = 1_000_000

var hundred = decimal.NewFromInt(100)

// couponWriter persists coupon definitions, replacing existing codes.
type couponWriter interface {
	Upsert(ctx context.Context, coupons []coupon.Coupon) error
}

type ingestConfig struct {
	ExpectedCodes     uint
	FalsePositiveRate float64
	BatchSize         int
}

type ingestStats struct {
	Rows     int
	Invalid  int
	Written  int
	Deferred int
}

// ingest loads coupon definitions from gzip CSV files. When a code appears in
// several files the definition from the last file wins, and within a file the
// last row wins.
//
// Pass 1 builds one bloom filter per file concurrently. Pass 2 streams the
// files in order: rows whose code cannot appear in a later file are written
// in batches straight away, the rest are held in memory and written once all
// files are read.
func ingest(ctx context.Context, files []string, w couponWriter, cfg ingestConfig) (ingestStats, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.FalsePositiveRate <= 0 || cfg.FalsePositiveRate >= 1 {
		cfg.FalsePositiveRate = 0.001
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))

	filters, err := buildFilters(ctx, files, cfg)
	if err != nil {
		return ingestStats{}, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: writing coupons")

	var stats ingestStats
	batches := make(chan []coupon.Coupon)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(batches)
		deferred, err := scanFiles(gctx, files, filters, cfg.BatchSize, batches, &stats)
		if err != nil {
			return err
		}

		stats.Deferred = len(deferred)
		held := make([]coupon.Coupon, 0, len(deferred))
		for _, c := range deferred {
			held = append(held, c)
		}
		for start := 0; start < len(held); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(held))
			select {
			case batches <- held[start:end]:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		for batch := range batches {
			if err := w.Upsert(gctx, batch); err != nil {
				return errors.Wrap(err, "upsert batch")
			}
			stats.Written += len(batch)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return stats, err
	}

	return stats, nil
}

// buildFilters creates one bloom filter of upper-cased codes per file.
func buildFilters(ctx context.Context, files []string, cfg ingestConfig) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(max(cfg.ExpectedCodes, 1), cfg.FalsePositiveRate)
			var count int
			if err := streamCSV(ctx, path, func(_ int, record []string) {
				code := strings.TrimSpace(record[0])
				if code == "" {
					return
				}
				filter.AddString(strings.ToUpper(code))
				count++
			}); err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}

			slog.Info("pass 1 complete", slog.String("file", path), slog.Int("codes", count))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// scanFiles streams files in order, sending coupons that are final to out.
// It returns the coupons whose code may be redefined by a later file, keyed
// by upper-cased code.
func scanFiles(
	ctx context.Context,
	files []string,
	filters []*bloom.BloomFilter,
	batchSize int,
	out chan<- []coupon.Coupon,
	stats *ingestStats,
) (map[string]coupon.Coupon, error) {
	deferred := make(map[string]coupon.Coupon)
	batch := make([]coupon.Coupon, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case out <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
		batch = make([]coupon.Coupon, 0, batchSize)
		return nil
	}

	for i, path := range files {
		var flushErr error
		err := streamCSV(ctx, path, func(line int, record []string) {
			if flushErr != nil {
				return
			}
			stats.Rows++
			if stats.Rows%progressEvery == 0 {
				slog.Info("pass 2 progress", slog.String("file", path), slog.Int("rows", stats.Rows))
			}

			c, err := parseRecord(record)
			if err != nil {
				stats.Invalid++
				slog.Warn("skipping invalid coupon row",
					slog.String("file", path),
					slog.Int("line", line),
					slog.String("error", err.Error()),
				)
				return
			}

			key := strings.ToUpper(c.Code)
			if _, held := deferred[key]; held || inLaterFile(filters, i, key) {
				deferred[key] = c
				return
			}

			batch = append(batch, c)
			if len(batch) >= batchSize {
				flushErr = flush()
			}
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", path)
		}
		if flushErr != nil {
			return nil, flushErr
		}
		slog.Info("pass 2 complete", slog.String("file", path), slog.Int("deferred", len(deferred)))
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return deferred, nil
}

func inLaterFile(filters []*bloom.BloomFilter, idx int, key string) bool {
	for _, f := range filters[idx+1:] {
		if f.TestString(key) {
			return true
		}
	}
	return false
}

// parseRecord converts a code,discount_percent,max_discount,active,expiry_date
// row into a coupon. Active defaults to true and expiry is optional.
func parseRecord(record []string) (coupon.Coupon, error) {
	if len(record) < 3 {
		return coupon.Coupon{}, errors.Errorf("expected at least 3 fields, got %d", len(record))
	}
	field := func(i int) string {
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	c := coupon.Coupon{Code: field(0), Active: true}
	if c.Code == "" {
		return coupon.Coupon{}, errors.New("empty code")
	}

	pct, err := decimal.NewFromString(field(1))
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "discount percent")
	}
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return coupon.Coupon{}, errors.Errorf("discount percent %s out of range", pct)
	}
	c.DiscountPercent = pct

	maxDiscount, err := decimal.NewFromString(field(2))
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "max discount")
	}
	if maxDiscount.IsNegative() {
		return coupon.Coupon{}, errors.Errorf("max discount %s is negative", maxDiscount)
	}
	c.MaxDiscount = maxDiscount.Round(2)

	if v := field(3); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return coupon.Coupon{}, errors.Wrap(err, "active")
		}
		c.Active = active
	}
	if v := field(4); v != "" {
		exp, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return coupon.Coupon{}, errors.Wrap(err, "expiry date")
		}
		c.ExpiryDate = &exp
	}

	return c, nil
}

// streamCSV opens a gzip-compressed CSV file and calls fn for each record.
// A leading header row starting with "code" is skipped.
func streamCSV(ctx context.Context, path string, fn func(line int, record []string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		line, _ := r.FieldPos(0)
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "code") {
			continue
		}
		fn(line, record)
	}
}
