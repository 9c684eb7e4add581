package paging

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/models"
)

// ErrNoScope is returned by the counters when no filter has been set.
var ErrNoScope = errors.New("no filter scope set")

// Unknown is the value of a pagination counter that has not been computed.
const Unknown int64 = -1

// FilterSession holds one paging interaction: the active scope, its counters
// and the windows fetched under it. It is not safe for concurrent use.
type FilterSession struct {
	sizes   Sizes
	codec   *codec.RowCodec
	fetcher *PageFetcher
	src     WindowSource
	cache   *WindowCache

	scope    models.FilterScope
	hasScope bool
	rows     int64
	pages    int64
}

// Options wires a FilterSession.
type Options struct {
	Sizes      Sizes
	Codec      *codec.RowCodec
	Source     WindowSource
	CacheLimit int
	Logger     zerolog.Logger
}

// NewSession creates a session without a scope.
func NewSession(opts Options) (*FilterSession, error) {
	if opts.Source == nil {
		return nil, errors.New("session needs a window source")
	}
	if err := opts.Sizes.Validate(); err != nil {
		return nil, err
	}
	if opts.Codec == nil {
		opts.Codec = codec.New("", nil)
	}

	return &FilterSession{
		sizes:   opts.Sizes,
		codec:   opts.Codec,
		fetcher: NewFetcher(opts.Source, opts.Sizes.DBWindow, opts.Logger),
		src:     opts.Source,
		cache:   NewWindowCache(opts.CacheLimit),
		rows:    Unknown,
		pages:   Unknown,
	}, nil
}

// SetFilter activates scope. A scope differing from the active one resets
// the counters and empties the cache; an identical scope keeps both.
func (s *FilterSession) SetFilter(scope models.FilterScope) {
	if s.hasScope && s.scope.Equal(scope) {
		s.scope = scope
		return
	}

	s.scope = scope
	s.hasScope = true
	s.rows = Unknown
	s.pages = Unknown
	s.cache.Clear()
}

// Scope returns the active scope and whether one is set.
func (s *FilterSession) Scope() (models.FilterScope, bool) {
	return s.scope, s.hasScope
}

// GetPage returns the rows of the 1-based page in ascending time order.
// Invalid page indexes, a missing scope and pages past the end of the data
// all yield an empty result without error. Store failures and malformed
// timestamps are returned as errors.
func (s *FilterSession) GetPage(ctx context.Context, pageIndex int) ([]models.Sample, error) {
	if pageIndex <= 0 || pageIndex > s.sizes.MaxPage() || !s.hasScope {
		return []models.Sample{}, nil
	}

	loc := s.sizes.Locate(pageIndex)
	window, ok := s.cache.Get(loc.WindowKey)
	if !ok {
		var err error
		window, err = s.fetcher.Fetch(ctx, s.scope, loc.WindowKey, s.cache)
		if err != nil {
			return nil, err
		}
	}

	if loc.StartRow < 0 || loc.StartRow >= len(window) {
		return []models.Sample{}, nil
	}
	end := min(len(window), loc.StartRow+s.sizes.UIPage)

	samples, err := s.codec.DecodeAll(window[loc.StartRow:end])
	if err != nil {
		return nil, fmt.Errorf("decode page %d: %w", pageIndex, err)
	}
	return samples, nil
}

// RowCount returns the number of rows under the active scope, querying the
// store on first use after a scope change.
func (s *FilterSession) RowCount(ctx context.Context) (int64, error) {
	if !s.hasScope {
		return Unknown, ErrNoScope
	}
	if s.rows == Unknown {
		n, err := s.src.CountRows(ctx, s.scope)
		if err != nil {
			return Unknown, fmt.Errorf("count rows for station %s: %w", s.scope.StationID, err)
		}
		s.rows = n
		s.pages = s.sizes.PageCount(n)
	}
	return s.rows, nil
}

// PageCount returns the number of UI pages under the active scope.
func (s *FilterSession) PageCount(ctx context.Context) (int64, error) {
	if _, err := s.RowCount(ctx); err != nil {
		return Unknown, err
	}
	return s.pages, nil
}

// CachedWindows returns the number of windows held for the active scope.
func (s *FilterSession) CachedWindows() int {
	return s.cache.Len()
}

// Sizes returns the paging configuration.
func (s *FilterSession) Sizes() Sizes {
	return s.sizes
}
