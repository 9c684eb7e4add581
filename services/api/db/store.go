package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/models"
)

// Store wraps Postgres access for the water table.
type Store struct {
	pool  *pgxpool.Pool
	table string
	ident string
	conv  layoutConv
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL, table, layout string) (*Store, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required for the postgres store")
	}
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{
		pool:  pool,
		table: table,
		ident: pgx.Identifier{table}.Sanitize(),
		conv:  newLayoutConv(layout),
	}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Table returns the water table name.
func (s *Store) Table() string {
	return s.table
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const createTableSQL = `
    CREATE TABLE IF NOT EXISTS %s (
        stationid    text      NOT NULL,
        datatime     timestamp NOT NULL,
        waterstage   numeric   NULL,
        transtype    text      NOT NULL,
        messagetype  text      NOT NULL,
        recvdatatime timestamp NOT NULL
    )
`

const createIndexSQL = `CREATE INDEX IF NOT EXISTS %s ON %s (stationid, datatime)`

// EnsureSchema creates the water table and its station/time index.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(createTableSQL, s.ident)); err != nil {
		return err
	}
	index := pgx.Identifier{s.table + "_station_time_idx"}.Sanitize()
	_, err := s.pool.Exec(ctx, fmt.Sprintf(createIndexSQL, index, s.ident))
	return err
}

// BulkLoad streams rows into the table with a single COPY on a connection
// acquired for this load. Empty water stages are loaded as NULL.
func (s *Store) BulkLoad(ctx context.Context, rows []codec.RawRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	stored, err := s.conv.toStore(rows)
	if err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	if err := gocsv.MarshalWithoutHeaders(stored, &buf); err != nil {
		return 0, fmt.Errorf("encode rows: %w", err)
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	copySQL := fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv)", s.ident, strings.Join(codec.Columns, ", "))
	tag, err := conn.Conn().PgConn().CopyFrom(ctx, &buf, copySQL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// scopeWhere builds the scope predicate with placeholders starting at $1.
func scopeWhere(scope models.FilterScope) (string, []any) {
	clause := "stationid = $1 AND datatime BETWEEN $2 AND $3"
	if scope.AlignToHour {
		clause += " AND date_trunc('hour', datatime) = datatime"
	}
	return clause, []any{scope.StationID, scope.Start.UTC(), scope.End.UTC()}
}

const windowSQL = `
    SELECT stationid, datatime, waterstage::text, transtype, messagetype, recvdatatime
    FROM (
        SELECT *, row_number() OVER (ORDER BY datatime, recvdatatime, ctid) AS rownum
        FROM %s
        WHERE %s
        ORDER BY datatime, recvdatatime, ctid
        LIMIT $4
    ) numbered
    WHERE rownum > $5
    ORDER BY rownum
`

// FetchWindow numbers the first key*size rows under scope by collection time
// and returns those numbered above (key-1)*size.
func (s *Store) FetchWindow(ctx context.Context, scope models.FilterScope, key, size int) ([]codec.RawRow, error) {
	where, args := scopeWhere(scope)
	args = append(args, key*size, (key-1)*size)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(windowSQL, s.ident, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]codec.RawRow, 0, size)
	for rows.Next() {
		r, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountRows returns the number of rows under scope.
func (s *Store) CountRows(ctx context.Context, scope models.FilterScope) (int64, error) {
	where, args := scopeWhere(scope)
	var n int64
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", s.ident, where), args...).Scan(&n)
	return n, err
}

const latestSQL = `
    SELECT DISTINCT ON (stationid) stationid, datatime, waterstage::text, transtype, messagetype, recvdatatime
    FROM %s
    ORDER BY stationid, datatime DESC
`

// Latest returns the most recent row of every station.
func (s *Store) Latest(ctx context.Context) ([]codec.RawRow, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(latestSQL, s.ident))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]codec.RawRow, 0)
	for rows.Next() {
		r, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) scanRow(rows pgx.Rows) (codec.RawRow, error) {
	var (
		r                codec.RawRow
		collected, recvd time.Time
		stage            *string
	)
	if err := rows.Scan(&r.StationID, &collected, &stage, &r.TransType, &r.MessageType, &recvd); err != nil {
		return r, err
	}
	r.DataTime = s.conv.format(collected)
	r.RecvDataTime = s.conv.format(recvd)
	if stage != nil {
		r.WaterStage = *stage
	}
	return r, nil
}
