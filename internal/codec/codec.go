package codec

import (
	"fmt"
	"strings"
	"time"

	"github.com/govalues/decimal"

	"github.com/02loveslollipop/tswater/internal/models"
)

// DefaultLayout is the timestamp layout used when none is configured.
const DefaultLayout = "2006-01-02 15:04:05"

// ParseError reports a stored value that could not be decoded. Timestamps
// have no fallback, so a ParseError aborts the decode of the whole page.
type ParseError struct {
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RowCodec converts RawRow values to samples and back. Timestamps are stored
// as UTC wall-clock time formatted with the configured layout.
type RowCodec struct {
	layout string
	codes  *CodeTable
}

// New creates a codec. An empty layout selects DefaultLayout and a nil table
// selects DefaultCodeTable.
func New(layout string, codes *CodeTable) *RowCodec {
	if layout == "" {
		layout = DefaultLayout
	}
	if codes == nil {
		codes = DefaultCodeTable()
	}
	return &RowCodec{layout: layout, codes: codes}
}

// Layout returns the timestamp layout.
func (c *RowCodec) Layout() string {
	return c.layout
}

// Codes returns the code table.
func (c *RowCodec) Codes() *CodeTable {
	return c.codes
}

// FormatTime renders t in the stored timestamp form.
func (c *RowCodec) FormatTime(t time.Time) string {
	return t.UTC().Format(c.layout)
}

// ParseTime parses a stored timestamp of the named column.
func (c *RowCodec) ParseTime(column, value string) (time.Time, error) {
	t, err := time.ParseInLocation(c.layout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, &ParseError{Column: column, Value: value, Err: err}
	}
	return t, nil
}

// ParseWaterStage parses a stored water stage. Empty or malformed values
// yield models.MissingWaterStage; it never fails.
func ParseWaterStage(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.MissingWaterStage
	}
	d, err := decimal.Parse(value)
	if err != nil {
		return models.MissingWaterStage
	}
	return d
}

// FormatWaterStage renders a water stage for storage; the sentinel is stored
// as NULL (empty string).
func FormatWaterStage(d decimal.Decimal) string {
	if d.Cmp(models.MissingWaterStage) == 0 {
		return ""
	}
	return d.String()
}

// Decode converts a stored row into a sample.
func (c *RowCodec) Decode(row RawRow) (models.Sample, error) {
	collected, err := c.ParseTime(ColDataTime, row.DataTime)
	if err != nil {
		return models.Sample{}, err
	}
	received, err := c.ParseTime(ColRecvDataTime, row.RecvDataTime)
	if err != nil {
		return models.Sample{}, err
	}

	return models.Sample{
		StationID:     strings.TrimSpace(row.StationID),
		TimeCollected: collected,
		TimeReceived:  received,
		WaterStage:    ParseWaterStage(row.WaterStage),
		ChannelType:   c.codes.Channel(strings.TrimSpace(row.TransType)),
		MessageType:   c.codes.Message(strings.TrimSpace(row.MessageType)),
	}, nil
}

// DecodeAll decodes rows in order, stopping at the first failure.
func (c *RowCodec) DecodeAll(rows []RawRow) ([]models.Sample, error) {
	samples := make([]models.Sample, 0, len(rows))
	for i := range rows {
		s, err := c.Decode(rows[i])
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Encode converts a sample into its stored form.
func (c *RowCodec) Encode(s models.Sample) RawRow {
	return RawRow{
		StationID:    s.StationID,
		DataTime:     c.FormatTime(s.TimeCollected),
		WaterStage:   FormatWaterStage(s.WaterStage),
		TransType:    c.codes.ChannelCode(s.ChannelType),
		MessageType:  c.codes.MessageCode(s.MessageType),
		RecvDataTime: c.FormatTime(s.TimeReceived),
	}
}

// EncodeAll encodes samples in order.
func (c *RowCodec) EncodeAll(samples []models.Sample) []RawRow {
	rows := make([]RawRow, len(samples))
	for i := range samples {
		rows[i] = c.Encode(samples[i])
	}
	return rows
}
