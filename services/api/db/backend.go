package db

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/models"
)

// Backend is a water table store. Both adapters return raw rows with their
// timestamps rendered in the configured codec layout.
type Backend interface {
	EnsureSchema(ctx context.Context) error
	BulkLoad(ctx context.Context, rows []codec.RawRow) (int64, error)
	FetchWindow(ctx context.Context, scope models.FilterScope, key, size int) ([]codec.RawRow, error)
	CountRows(ctx context.Context, scope models.FilterScope) (int64, error)
	ListStations(ctx context.Context, limit, offset int) (*StationsPage, error)
	Latest(ctx context.Context) ([]codec.RawRow, error)
	Ping(ctx context.Context) error
	Table() string
	Close()
}

// Drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	Table       string
	Layout      string
}

// Open connects the configured backend and makes sure its table exists.
func Open(ctx context.Context, opts Options) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch opts.Driver {
	case DriverPostgres, "":
		b, err = New(ctx, opts.DatabaseURL, opts.Table, opts.Layout)
	case DriverSQLite:
		b, err = OpenSQLite(opts.SQLitePath, opts.Table, opts.Layout)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := b.EnsureSchema(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return b, nil
}

// StationSummary aggregates the rows stored for one station.
type StationSummary struct {
	StationID   string    `json:"station_id"`
	Rows        int64     `json:"rows"`
	FirstSample time.Time `json:"first_sample"`
	LastSample  time.Time `json:"last_sample"`
}

// StationsPage is one page of station summaries.
type StationsPage struct {
	Stations   []StationSummary `json:"stations"`
	TotalCount int              `json:"total_count"`
}

var tableNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTableName reports whether name is a plain SQL identifier.
func ValidTableName(name string) bool {
	return tableNameRE.MatchString(name)
}

// storeLayout is how both adapters exchange timestamps with the database.
const storeLayout = "2006-01-02 15:04:05"

// layoutConv converts row timestamps between the codec layout and the store.
type layoutConv struct {
	rc *codec.RowCodec
}

func newLayoutConv(layout string) layoutConv {
	return layoutConv{rc: codec.New(layout, nil)}
}

func (c layoutConv) parse(column, value string) (time.Time, error) {
	return c.rc.ParseTime(column, value)
}

func (c layoutConv) format(t time.Time) string {
	return c.rc.FormatTime(t)
}

// toStore rewrites the timestamp columns of rows into storeLayout.
func (c layoutConv) toStore(rows []codec.RawRow) ([]codec.RawRow, error) {
	out := make([]codec.RawRow, len(rows))
	for i, r := range rows {
		collected, err := c.parse(codec.ColDataTime, r.DataTime)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		received, err := c.parse(codec.ColRecvDataTime, r.RecvDataTime)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		r.DataTime = collected.Format(storeLayout)
		r.RecvDataTime = received.Format(storeLayout)
		out[i] = r
	}
	return out, nil
}
