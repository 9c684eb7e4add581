package db

import (
	"context"
	"time"

	"github.com/02loveslollipop/tswater/internal/codec"
)

// LatestSource returns the most recent stored row per station.
type LatestSource interface {
	Latest(ctx context.Context) ([]codec.RawRow, error)
}

// FetchLastCollected loads the most recent collection time per station.
func FetchLastCollected(ctx context.Context, src LatestSource, rc *codec.RowCodec) (map[string]time.Time, error) {
	rows, err := src.Latest(ctx)
	if err != nil {
		return nil, err
	}

	result := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		ts, err := rc.ParseTime(codec.ColDataTime, r.DataTime)
		if err != nil {
			return nil, err
		}
		result[r.StationID] = ts
	}
	return result, nil
}
