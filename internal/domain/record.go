package domain

import "time"

// DateLayout is the calendar date format records are keyed on.
const DateLayout = "2006-01-02"

// Record is one synced summary row, identified by (Date, Project).
type Record struct {
	Date     string
	Project  string
	Duration string
	Hours    float64
	LastSync time.Time
}

// NewRecord builds the record for one project aggregate on date.
// syncedAt should already be in the zone the store expects.
func NewRecord(date string, agg ProjectAggregate, syncedAt time.Time) Record {
	return Record{
		Date:     date,
		Project:  agg.Name,
		Duration: FormatClock(agg.Total),
		Hours:    RoundHours(agg.Total),
		LastSync: syncedAt,
	}
}
