package db

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ListStations returns per-station row counts and sample ranges, ordered by
// station id, together with the total number of stations.
func (s *Store) ListStations(ctx context.Context, limit, offset int) (*StationsPage, error) {
	countSQL := "SELECT COUNT(DISTINCT stationid) FROM " + s.ident
	var totalCount int
	if err := s.pool.QueryRow(ctx, countSQL).Scan(&totalCount); err != nil {
		return nil, err
	}

	args := []any{}
	query := strings.Builder{}
	query.WriteString("SELECT stationid, COUNT(*) AS row_count, MIN(datatime) AS first_sample, MAX(datatime) AS last_sample ")
	query.WriteString(fmt.Sprintf("FROM %s ", s.ident))
	query.WriteString("GROUP BY stationid ")
	query.WriteString("ORDER BY stationid")
	if limit > 0 {
		args = append(args, limit)
		query.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if offset > 0 {
		args = append(args, offset)
		query.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]StationSummary, 0)
	for rows.Next() {
		var st StationSummary
		if err := rows.Scan(&st.StationID, &st.Rows, &st.FirstSample, &st.LastSample); err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &StationsPage{Stations: stations, TotalCount: totalCount}, nil
}
