// Package sheets reads stock rows from a Google Sheets range.
package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/rickgao/stocksync/internal/model"
)

// Source fetches the data rows of one spreadsheet range.
type Source struct {
	svc           *sheets.Service
	spreadsheetID string
	readRange     string
	logger        *slog.Logger
}

// NewSource creates a Source for the given spreadsheet and A1 range.
// Authentication and endpoint come from opts.
func NewSource(ctx context.Context, spreadsheetID, readRange string, logger *slog.Logger, opts ...option.ClientOption) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Source{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		logger:        logger,
	}, nil
}

// Rows returns every row of the range except the header.
// Cells are rendered as displayed in the sheet.
func (s *Source) Rows(ctx context.Context) ([]model.RawRow, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		MajorDimension("ROWS").
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get values %s: %w: %w", s.readRange, model.ErrSourceUnavailable, err)
	}

	if len(resp.Values) == 0 {
		s.logger.Info("sheet range is empty", "range", s.readRange)
		return nil, nil
	}

	rows := make([]model.RawRow, 0, len(resp.Values)-1)
	for _, values := range resp.Values[1:] {
		row := make(model.RawRow, len(values))
		for i, v := range values {
			row[i] = cellString(v)
		}
		rows = append(rows, row)
	}

	s.logger.Debug("fetched sheet rows", "range", s.readRange, "count", len(rows))
	return rows, nil
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}
