package models

import "time"

// FilterScope is the set of query parameters a paging session reads under.
type FilterScope struct {
	StationID   string
	Start       time.Time
	End         time.Time
	AlignToHour bool
}

// Equal reports whether both scopes select the same rows. Times are compared
// as instants.
func (f FilterScope) Equal(other FilterScope) bool {
	return f.StationID == other.StationID &&
		f.Start.Equal(other.Start) &&
		f.End.Equal(other.End) &&
		f.AlignToHour == other.AlignToHour
}
