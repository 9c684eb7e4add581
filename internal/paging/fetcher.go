package paging

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/models"
)

// WindowSource is the read side of the backing store.
type WindowSource interface {
	// FetchWindow returns rows numbered ((key-1)*size, key*size] under scope,
	// ascending by collection time.
	FetchWindow(ctx context.Context, scope models.FilterScope, key, size int) ([]codec.RawRow, error)
	// CountRows returns the number of rows under scope.
	CountRows(ctx context.Context, scope models.FilterScope) (int64, error)
}

// PageFetcher loads missing windows into a cache.
type PageFetcher struct {
	src    WindowSource
	window int
	log    zerolog.Logger
}

// NewFetcher creates a fetcher for windows of the given size.
func NewFetcher(src WindowSource, window int, log zerolog.Logger) *PageFetcher {
	return &PageFetcher{src: src, window: window, log: log}
}

// Fetch issues one bounded query for key and stores the result verbatim.
func (f *PageFetcher) Fetch(ctx context.Context, scope models.FilterScope, key int, cache *WindowCache) ([]codec.RawRow, error) {
	rows, err := f.src.FetchWindow(ctx, scope, key, f.window)
	if err != nil {
		return nil, fmt.Errorf("fetch window %d for station %s: %w", key, scope.StationID, err)
	}
	cache.Put(key, rows)

	f.log.Debug().
		Str("station_id", scope.StationID).
		Int("window", key).
		Int("rows", len(rows)).
		Msg("window fetched")
	return rows, nil
}
