package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/02loveslollipop/tswater/internal/codec"
	"github.com/02loveslollipop/tswater/internal/models"
)

// SQLiteStore keeps the water table in a local SQLite file. Timestamps are
// stored as sortable text, water stages as text with NULL for missing.
type SQLiteStore struct {
	db    *sql.DB
	table string
	ident string
	conv  layoutConv
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(path, table, layout string) (*SQLiteStore, error) {
	if !ValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteStore{
		db:    db,
		table: table,
		ident: pgx.Identifier{table}.Sanitize(),
		conv:  newLayoutConv(layout),
	}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Table returns the water table name.
func (s *SQLiteStore) Table() string {
	return s.table
}

// Ping checks the database.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
    stationid    TEXT NOT NULL,
    datatime     TEXT NOT NULL,
    waterstage   TEXT NULL,
    transtype    TEXT NOT NULL,
    messagetype  TEXT NOT NULL,
    recvdatatime TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s (stationid, datatime);
`

// EnsureSchema creates the water table and its index.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	index := pgx.Identifier{s.table + "_station_time_idx"}.Sanitize()
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(sqliteSchema, s.ident, index))
	return err
}

// BulkLoad inserts rows in one transaction through a prepared statement.
func (s *SQLiteStore) BulkLoad(ctx context.Context, rows []codec.RawRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stored, err := s.conv.toStore(rows)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (stationid, datatime, waterstage, transtype, messagetype, recvdatatime) VALUES (?, ?, ?, ?, ?, ?)",
		s.ident))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, r := range stored {
		var stage any
		if r.WaterStage != "" {
			stage = r.WaterStage
		}
		if _, err := stmt.ExecContext(ctx, r.StationID, r.DataTime, stage, r.TransType, r.MessageType, r.RecvDataTime); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int64(len(stored)), nil
}

func sqliteScopeWhere(scope models.FilterScope) (string, []any) {
	clause := "stationid = ? AND datatime BETWEEN ? AND ?"
	if scope.AlignToHour {
		clause += " AND strftime('%M:%S', datatime) = '00:00'"
	}
	return clause, []any{
		scope.StationID,
		scope.Start.UTC().Format(storeLayout),
		scope.End.UTC().Format(storeLayout),
	}
}

const sqliteWindowSQL = `
SELECT stationid, datatime, waterstage, transtype, messagetype, recvdatatime
FROM (
    SELECT *, row_number() OVER (ORDER BY datatime, recvdatatime, rowid) AS rownum
    FROM %s
    WHERE %s
    ORDER BY datatime, recvdatatime, rowid
    LIMIT ?
) numbered
WHERE rownum > ?
ORDER BY rownum
`

// FetchWindow numbers the first key*size rows under scope by collection time
// and returns those numbered above (key-1)*size.
func (s *SQLiteStore) FetchWindow(ctx context.Context, scope models.FilterScope, key, size int) ([]codec.RawRow, error) {
	where, args := sqliteScopeWhere(scope)
	args = append(args, key*size, (key-1)*size)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(sqliteWindowSQL, s.ident, where), args...)
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
func (s *SQLiteStore) CountRows(ctx context.Context, scope models.FilterScope) (int64, error) {
	where, args := sqliteScopeWhere(scope)
	var n int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", s.ident, where), args...).Scan(&n)
	return n, err
}

const sqliteLatestSQL = `
SELECT stationid, datatime, waterstage, transtype, messagetype, recvdatatime
FROM (
    SELECT *, row_number() OVER (PARTITION BY stationid ORDER BY datatime DESC) AS rn
    FROM %s
) ranked
WHERE rn = 1
ORDER BY stationid
`

// Latest returns the most recent row of every station.
func (s *SQLiteStore) Latest(ctx context.Context) ([]codec.RawRow, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(sqliteLatestSQL, s.ident))
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

// ListStations returns per-station row counts and sample ranges.
func (s *SQLiteStore) ListStations(ctx context.Context, limit, offset int) (*StationsPage, error) {
	var totalCount int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT stationid) FROM "+s.ident).Scan(&totalCount); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT stationid, COUNT(*), MIN(datatime), MAX(datatime) FROM %s GROUP BY stationid ORDER BY stationid LIMIT ? OFFSET ?",
		s.ident), limit, max(offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]StationSummary, 0)
	for rows.Next() {
		var (
			st          StationSummary
			first, last string
		)
		if err := rows.Scan(&st.StationID, &st.Rows, &first, &last); err != nil {
			return nil, err
		}
		if st.FirstSample, err = time.Parse(storeLayout, first); err != nil {
			return nil, err
		}
		if st.LastSample, err = time.Parse(storeLayout, last); err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &StationsPage{Stations: stations, TotalCount: totalCount}, nil
}

func (s *SQLiteStore) scanRow(rows *sql.Rows) (codec.RawRow, error) {
	var (
		r                codec.RawRow
		collected, recvd string
		stage            sql.NullString
	)
	if err := rows.Scan(&r.StationID, &collected, &stage, &r.TransType, &r.MessageType, &recvd); err != nil {
		return r, err
	}

	ct, err := time.Parse(storeLayout, collected)
	if err != nil {
		return r, &codec.ParseError{Column: codec.ColDataTime, Value: collected, Err: err}
	}
	rt, err := time.Parse(storeLayout, recvd)
	if err != nil {
		return r, &codec.ParseError{Column: codec.ColRecvDataTime, Value: recvd, Err: err}
	}
	r.DataTime = s.conv.format(ct)
	r.RecvDataTime = s.conv.format(rt)
	r.WaterStage = stage.String
	return r, nil
}
