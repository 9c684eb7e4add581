// Package paging serves fixed-size UI pages out of larger store windows that
// are fetched on demand and cached per filter scope.
package paging

import (
	"fmt"
	"math"
)

// Sizes holds the paging configuration.
type Sizes struct {
	UIPage   int
	DBWindow int
}

// DefaultSizes returns 100-row pages over 1000-row windows.
func DefaultSizes() Sizes {
	return Sizes{UIPage: 100, DBWindow: 1000}
}

// Validate requires 0 < UIPage <= DBWindow with whole pages per window.
func (s Sizes) Validate() error {
	if s.UIPage <= 0 {
		return fmt.Errorf("ui page size must be positive, got %d", s.UIPage)
	}
	if s.DBWindow < s.UIPage {
		return fmt.Errorf("db window size %d is smaller than ui page size %d", s.DBWindow, s.UIPage)
	}
	if s.DBWindow%s.UIPage != 0 {
		return fmt.Errorf("db window size %d is not a multiple of ui page size %d", s.DBWindow, s.UIPage)
	}
	return nil
}

// Location is where a UI page starts.
type Location struct {
	// StartIndex is the 1-based index of the first row of the page.
	StartIndex int
	// WindowKey is the 1-based window holding that row.
	WindowKey int
	// StartRow is the 0-based offset of that row inside the window.
	StartRow int
}

// MaxPage is the largest page index whose window still ends within int range.
// No store holds that many rows; larger indexes are past the end of any data.
func (s Sizes) MaxPage() int {
	return (math.MaxInt-s.DBWindow)/s.UIPage + 1
}

// Locate maps a 1-based page index onto its window. pageIndex must be in
// [1, MaxPage].
func (s Sizes) Locate(pageIndex int) Location {
	start := (pageIndex-1)*s.UIPage + 1
	key := (start-1)/s.DBWindow + 1
	return Location{
		StartIndex: start,
		WindowKey:  key,
		StartRow:   start - (key-1)*s.DBWindow - 1,
	}
}

// PageCount returns the number of pages needed for rows.
func (s Sizes) PageCount(rows int64) int64 {
	if rows <= 0 {
		return 0
	}
	return (rows + int64(s.UIPage) - 1) / int64(s.UIPage)
}
