package transform

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stocksync/internal/model"
)

// Column widths of the stock table.
const (
	MaxIDLength             = 5
	MaxOrderReferenceLength = 14
)

// RateResolver resolves the value of one unit of a currency on a date.
type RateResolver interface {
	Resolve(ctx context.Context, date time.Time, code string) (decimal.Decimal, error)
}

// ErrorPolicy controls how a per-row failure affects the batch.
type ErrorPolicy int

const (
	// AbortBatch yields the first row error and stops.
	AbortBatch ErrorPolicy = iota
	// SkipRow logs row errors and continues. Source outages still abort.
	SkipRow
)

func (p ErrorPolicy) String() string {
	switch p {
	case AbortBatch:
		return "abort"
	case SkipRow:
		return "skip"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}

// ParseErrorPolicy parses "abort" or "skip".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return AbortBatch, nil
	case "skip":
		return SkipRow, nil
	default:
		return AbortBatch, fmt.Errorf("unknown error policy %q", s)
	}
}

// Transformer turns raw rows into records.
type Transformer struct {
	resolver RateResolver
	currency string
	policy   ErrorPolicy
	logger   *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithErrorPolicy sets the per-row error policy.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(t *Transformer) {
		t.policy = p
	}
}

// New creates a Transformer converting amounts from currency.
func New(resolver RateResolver, currency string, logger *slog.Logger, opts ...Option) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transformer{
		resolver: resolver,
		currency: currency,
		policy:   AbortBatch,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Policy returns the configured error policy.
func (t *Transformer) Policy() ErrorPolicy {
	return t.policy
}

// Transform returns a lazy sequence of records built from rows.
// Rows whose width is not model.RawRowWidth are skipped without error.
// The sequence may be ranged over more than once.
func (t *Transformer) Transform(ctx context.Context, rows []model.RawRow) iter.Seq2[model.Record, error] {
	return func(yield func(model.Record, error) bool) {
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				yield(model.Record{}, err)
				return
			}

			if len(row) != model.RawRowWidth {
				t.logger.Debug("skipping row", "row", i, "cells", len(row))
				continue
			}

			rec, err := t.Record(ctx, row)
			if err != nil {
				if t.policy == SkipRow && skippable(err) {
					t.logger.Warn("skipping invalid row", "row", i, "error", err)
					continue
				}
				yield(model.Record{}, fmt.Errorf("row %d: %w", i, err))
				return
			}

			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Record converts a single row of model.RawRowWidth cells.
func (t *Transformer) Record(ctx context.Context, row model.RawRow) (model.Record, error) {
	if len(row) != model.RawRowWidth {
		return model.Record{}, fmt.Errorf("%w: %d cells, want %d", model.ErrInvalidRow, len(row), model.RawRowWidth)
	}

	id := strings.TrimSpace(row[model.ColID])
	ref := strings.TrimSpace(row[model.ColOrderReference])
	amountText := strings.TrimSpace(row[model.ColAmount])
	dateText := strings.TrimSpace(row[model.ColSupplyDate])

	if ref == "" {
		return model.Record{}, fmt.Errorf("%w: empty order reference", model.ErrInvalidRow)
	}
	if id == "" {
		return model.Record{}, fmt.Errorf("%w: empty id for order %s", model.ErrInvalidRow, ref)
	}
	if utf8.RuneCountInString(ref) > MaxOrderReferenceLength {
		return model.Record{}, fmt.Errorf("%w: order reference %q longer than %d", model.ErrInvalidRow, ref, MaxOrderReferenceLength)
	}
	if utf8.RuneCountInString(id) > MaxIDLength {
		return model.Record{}, fmt.Errorf("%w: id %q longer than %d", model.ErrInvalidRow, id, MaxIDLength)
	}

	date, err := model.ParseSupplyDate(dateText)
	if err != nil {
		return model.Record{}, fmt.Errorf("%w: order %s: %q", model.ErrInvalidDate, ref, dateText)
	}

	amount, err := model.ParseDecimal(amountText)
	if err != nil {
		return model.Record{}, fmt.Errorf("%w: order %s: amount %q", model.ErrInvalidRow, ref, amountText)
	}

	rate, err := t.resolver.Resolve(ctx, date, t.currency)
	if err != nil {
		return model.Record{}, fmt.Errorf("resolve rate for order %s on %s: %w", ref, date.Format(time.DateOnly), err)
	}

	return model.Record{
		ID:              id,
		OrderReference:  ref,
		AmountSource:    amount,
		SupplyDate:      date,
		AmountConverted: amount.Mul(rate),
		Retain:          true,
	}, nil
}

// skippable reports whether err concerns only the row itself.
func skippable(err error) bool {
	return errors.Is(err, model.ErrInvalidRow) ||
		errors.Is(err, model.ErrInvalidDate) ||
		errors.Is(err, model.ErrRateNotFound)
}

// Collect drains seq into a slice, stopping at the first error.
// When an order reference repeats, the last occurrence replaces the earlier one in place.
// An id claimed by two different orders is an ErrInvalidRow.
func Collect(seq iter.Seq2[model.Record, error]) ([]model.Record, error) {
	var records []model.Record
	index := make(map[string]int)
	owners := make(map[string]string) // id -> order reference

	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		if owner, ok := owners[rec.ID]; ok && owner != rec.OrderReference {
			return nil, fmt.Errorf("%w: id %s used by orders %s and %s",
				model.ErrInvalidRow, rec.ID, owner, rec.OrderReference)
		}
		if i, ok := index[rec.OrderReference]; ok {
			delete(owners, records[i].ID)
			records[i] = rec
			owners[rec.ID] = rec.OrderReference
			continue
		}
		index[rec.OrderReference] = len(records)
		owners[rec.ID] = rec.OrderReference
		records = append(records, rec)
	}

	return records, nil
}
