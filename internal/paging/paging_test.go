package paging

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/govalues/decimal"
	"github.com/rs/zerolog"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/models"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeSource serves rowsPerStation rows per station, one every 10 minutes,
// numbered the way the store numbers them.
type fakeSource struct {
	rowsPerStation int
	err            error

	fetches []int
	counts  int
}

func (f *fakeSource) all(scope models.FilterScope) []codec.RawRow {
	c := codec.New("", nil)
	var out []codec.RawRow
	for i := 0; i < f.rowsPerStation; i++ {
		ts := base.Add(time.Duration(i) * 10 * time.Minute)
		if ts.Before(scope.Start) || ts.After(scope.End) {
			continue
		}
		if scope.AlignToHour && ts.Minute() != 0 {
			continue
		}
		out = append(out, c.Encode(models.Sample{
			StationID:     scope.StationID,
			TimeCollected: ts,
			TimeReceived:  ts,
			WaterStage:    decimal.MustNew(int64(i), 0),
			ChannelType:   models.Channel(models.ChannelGSM),
			MessageType:   models.Message(models.MessageTimed),
		}))
	}
	return out
}

func (f *fakeSource) FetchWindow(_ context.Context, scope models.FilterScope, key, size int) ([]codec.RawRow, error) {
	f.fetches = append(f.fetches, key)
	if f.err != nil {
		return nil, f.err
	}
	rows := f.all(scope)
	lo, hi := (key-1)*size, key*size
	if lo >= len(rows) {
		return nil, nil
	}
	return rows[lo:min(hi, len(rows))], nil
}

func (f *fakeSource) CountRows(_ context.Context, scope models.FilterScope) (int64, error) {
	f.counts++
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.all(scope))), nil
}

func newSession(t *testing.T, src WindowSource, sizes Sizes) *FilterSession {
	t.Helper()
	s, err := NewSession(Options{Sizes: sizes, Source: src, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func wholeDay(station string) models.FilterScope {
	return models.FilterScope{StationID: station, Start: base, End: base.Add(1000 * time.Hour)}
}

func TestLocate(t *testing.T) {
	sizes := DefaultSizes()
	cases := []struct {
		page int
		want Location
	}{
		{page: 1, want: Location{StartIndex: 1, WindowKey: 1, StartRow: 0}},
		{page: 10, want: Location{StartIndex: 901, WindowKey: 1, StartRow: 900}},
		{page: 11, want: Location{StartIndex: 1001, WindowKey: 2, StartRow: 0}},
		{page: 25, want: Location{StartIndex: 2401, WindowKey: 3, StartRow: 400}},
	}

	for _, c := range cases {
		t.Run(strconv.Itoa(c.page), func(t *testing.T) {
			if got := sizes.Locate(c.page); got != c.want {
				t.Errorf("Locate(%d) = %+v, want %+v", c.page, got, c.want)
			}
		})
	}
}

func TestSizes_Validate(t *testing.T) {
	cases := []struct {
		sizes   Sizes
		wantErr bool
	}{
		{sizes: Sizes{UIPage: 100, DBWindow: 1000}},
		{sizes: Sizes{UIPage: 10, DBWindow: 10}},
		{sizes: Sizes{UIPage: 0, DBWindow: 10}, wantErr: true},
		{sizes: Sizes{UIPage: 20, DBWindow: 10}, wantErr: true},
		{sizes: Sizes{UIPage: 30, DBWindow: 100}, wantErr: true},
	}
	for _, c := range cases {
		if err := c.sizes.Validate(); (err != nil) != c.wantErr {
			t.Errorf("%+v: Validate() = %v, wantErr %v", c.sizes, err, c.wantErr)
		}
	}
}

func TestGetPage_InvalidRequestsAreEmpty(t *testing.T) {
	src := &fakeSource{rowsPerStation: 50}
	s := newSession(t, src, Sizes{UIPage: 10, DBWindow: 20})

	got, err := s.GetPage(context.Background(), 1)
	if err != nil || len(got) != 0 {
		t.Errorf("page without scope = %v, %v", got, err)
	}

	s.SetFilter(wholeDay("1"))
	for _, page := range []int{0, -3} {
		got, err := s.GetPage(context.Background(), page)
		if err != nil || len(got) != 0 {
			t.Errorf("page %d = %v, %v", page, got, err)
		}
	}
	if len(src.fetches) != 0 {
		t.Errorf("fetches = %v, want none", src.fetches)
	}
}

func TestGetPage_HugeIndexesArePastTheEnd(t *testing.T) {
	src := &fakeSource{rowsPerStation: 50}
	sizes := DefaultSizes()
	s := newSession(t, src, sizes)
	s.SetFilter(wholeDay("1"))

	for _, page := range []int{sizes.MaxPage(), sizes.MaxPage() + 1, math.MaxInt/100 + 2, math.MaxInt} {
		got, err := s.GetPage(context.Background(), page)
		if err != nil || len(got) != 0 {
			t.Errorf("page %d = %v, %v", page, got, err)
		}
	}
	if len(src.fetches) != 1 {
		t.Errorf("fetches = %v, want only the window of MaxPage", src.fetches)
	}

	loc := sizes.Locate(sizes.MaxPage())
	if loc.StartIndex <= 0 || loc.WindowKey <= 0 || loc.StartRow < 0 || loc.WindowKey > math.MaxInt/sizes.DBWindow {
		t.Errorf("Locate(MaxPage) = %+v", loc)
	}
}

func TestGetPage_ServesPagesFromCachedWindows(t *testing.T) {
	src := &fakeSource{rowsPerStation: 45}
	s := newSession(t, src, Sizes{UIPage: 10, DBWindow: 20})
	s.SetFilter(wholeDay("1"))
	ctx := context.Background()

	wantFirst := []int64{0, 10, 20, 30, 40}
	wantLen := []int{10, 10, 10, 10, 5}
	for i := range wantFirst {
		page, err := s.GetPage(ctx, i+1)
		if err != nil {
			t.Fatalf("page %d: %v", i+1, err)
		}
		if len(page) != wantLen[i] {
			t.Fatalf("page %d has %d rows, want %d", i+1, len(page), wantLen[i])
		}
		if got := page[0].WaterStage.Coef(); got != uint64(wantFirst[i]) {
			t.Errorf("page %d starts at row %d, want %d", i+1, got, wantFirst[i])
		}
		for j := 1; j < len(page); j++ {
			if !page[j].TimeCollected.After(page[j-1].TimeCollected) {
				t.Fatalf("page %d not ascending at %d", i+1, j)
			}
		}
	}

	// Pages 1-2 share window 1, 3-4 window 2, 5 window 3.
	if want := []int{1, 2, 3}; !equalInts(src.fetches, want) {
		t.Errorf("fetches = %v, want %v", src.fetches, want)
	}

	page, err := s.GetPage(ctx, 6)
	if err != nil || len(page) != 0 {
		t.Errorf("page past the end = %v, %v", page, err)
	}
	page, err = s.GetPage(ctx, 9)
	if err != nil || len(page) != 0 {
		t.Errorf("page far past the end = %v, %v", page, err)
	}
}

func TestSetFilter_ChangeInvalidatesCache(t *testing.T) {
	src := &fakeSource{rowsPerStation: 30}
	s := newSession(t, src, Sizes{UIPage: 10, DBWindow: 20})
	ctx := context.Background()

	s.SetFilter(wholeDay("1"))
	if _, err := s.GetPage(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RowCount(ctx); err != nil {
		t.Fatal(err)
	}

	// Identical scope keeps the window and the counters.
	s.SetFilter(wholeDay("1"))
	if _, err := s.GetPage(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := s.RowCount(ctx); err != nil {
		t.Fatal(err)
	}
	if len(src.fetches) != 1 || src.counts != 1 {
		t.Fatalf("identical scope refetched: fetches=%v counts=%d", src.fetches, src.counts)
	}

	s.SetFilter(wholeDay("2"))
	if s.CachedWindows() != 0 {
		t.Errorf("cache holds %d windows after scope change", s.CachedWindows())
	}
	page, err := s.GetPage(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(src.fetches) != 2 {
		t.Errorf("fetches = %v, want a fresh fetch", src.fetches)
	}
	if page[0].StationID != "2" {
		t.Errorf("page served from the old scope: %s", page[0].StationID)
	}
	if _, err := s.RowCount(ctx); err != nil || src.counts != 2 {
		t.Errorf("counters not reset: counts=%d err=%v", src.counts, err)
	}
}

func TestSetFilter_AlignmentIsPartOfScope(t *testing.T) {
	src := &fakeSource{rowsPerStation: 60}
	s := newSession(t, src, Sizes{UIPage: 100, DBWindow: 100})
	ctx := context.Background()

	scope := wholeDay("1")
	s.SetFilter(scope)
	all, _ := s.GetPage(ctx, 1)

	scope.AlignToHour = true
	s.SetFilter(scope)
	aligned, _ := s.GetPage(ctx, 1)

	if len(all) != 60 || len(aligned) != 10 {
		t.Errorf("rows = %d/%d, want 60/10", len(all), len(aligned))
	}
	for _, smp := range aligned {
		if smp.TimeCollected.Minute() != 0 {
			t.Errorf("unaligned row %s", smp.TimeCollected)
		}
	}
}

func TestCounters(t *testing.T) {
	src := &fakeSource{rowsPerStation: 45}
	s := newSession(t, src, Sizes{UIPage: 10, DBWindow: 20})
	ctx := context.Background()

	if _, err := s.RowCount(ctx); !errors.Is(err, ErrNoScope) {
		t.Errorf("RowCount without scope = %v", err)
	}

	s.SetFilter(wholeDay("1"))
	rows, err := s.RowCount(ctx)
	if err != nil || rows != 45 {
		t.Errorf("RowCount = %d, %v", rows, err)
	}
	pages, err := s.PageCount(ctx)
	if err != nil || pages != 5 {
		t.Errorf("PageCount = %d, %v", pages, err)
	}
}

func TestGetPage_StoreErrorIsReturned(t *testing.T) {
	src := &fakeSource{rowsPerStation: 10, err: errors.New("connection refused")}
	s := newSession(t, src, Sizes{UIPage: 10, DBWindow: 20})
	s.SetFilter(wholeDay("1"))

	if _, err := s.GetPage(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	if s.CachedWindows() != 0 {
		t.Error("failed fetch must not populate the cache")
	}
}

func TestWindowCache_LRU(t *testing.T) {
	c := NewWindowCache(2)
	c.Put(1, []codec.RawRow{{StationID: "a"}})
	c.Put(2, []codec.RawRow{{StationID: "b"}})
	c.Get(1)
	c.Put(3, []codec.RawRow{{StationID: "c"}})

	if _, ok := c.Get(2); ok {
		t.Error("window 2 should have been evicted")
	}
	if _, ok := c.Get(1); !ok {
		t.Error("window 1 was used recently and should be kept")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	unbounded := NewWindowCache(0)
	for k := 1; k <= 50; k++ {
		unbounded.Put(k, nil)
	}
	if unbounded.Len() != 50 {
		t.Errorf("unbounded Len = %d", unbounded.Len())
	}
	unbounded.Clear()
	if unbounded.Len() != 0 {
		t.Error("Clear left entries behind")
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
