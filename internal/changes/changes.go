// Package changes reads the Google Drive change log.
package changes

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/rickgao/stocksync/internal/model"
)

// Feed is a change feed over the Drive changes API.
type Feed struct {
	svc      *drive.Service
	pageSize int64
	logger   *slog.Logger
}

// NewFeed creates a Feed. Authentication and endpoint come from opts.
func NewFeed(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Feed, error) {
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Feed{
		svc:      svc,
		pageSize: 100,
		logger:   logger,
	}, nil
}

// Checkpoint returns the current start page token.
func (f *Feed) Checkpoint(ctx context.Context) (model.ChangeToken, error) {
	resp, err := f.svc.Changes.GetStartPageToken().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get start page token: %w: %w", model.ErrSourceUnavailable, err)
	}
	return model.ChangeToken(resp.StartPageToken), nil
}

// ListChanges returns the ids of files changed on the page at token,
// and the token of the next page. next is empty on the last page.
func (f *Feed) ListChanges(ctx context.Context, token model.ChangeToken) ([]model.ResourceID, model.ChangeToken, error) {
	resp, err := f.svc.Changes.List(string(token)).
		Spaces("drive").
		PageSize(f.pageSize).
		Fields("nextPageToken", "newStartPageToken", "changes(fileId,removed)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, "", fmt.Errorf("list changes: %w: %w", model.ErrSourceUnavailable, err)
	}

	ids := make([]model.ResourceID, 0, len(resp.Changes))
	for _, c := range resp.Changes {
		if c.FileId == "" {
			continue
		}
		ids = append(ids, model.ResourceID(c.FileId))
	}

	f.logger.Debug("listed changes",
		"token", token,
		"count", len(ids),
		"next", resp.NextPageToken,
	)
	return ids, model.ChangeToken(resp.NextPageToken), nil
}
