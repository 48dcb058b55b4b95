package analytics

import (
	"context"
	"errors"
	"time"
)

// Interval is the bucket width for aggregated historical queries.
type Interval string

// Supported bucket widths.
const (
	IntervalMinute15 Interval = "MINUTE_15"
	IntervalHour     Interval = "HOUR"
	IntervalDay      Interval = "DAY"
	IntervalWeek     Interval = "WEEK"
	IntervalMonth    Interval = "MONTH"
)

// Duration returns the bucket width. Months are approximated as 30 days for
// bucketing purposes.
func (i Interval) Duration() time.Duration {
	switch i {
	case IntervalMinute15:
		return 15 * time.Minute
	case IntervalHour:
		return time.Hour
	case IntervalDay:
		return 24 * time.Hour
	case IntervalWeek:
		return 7 * 24 * time.Hour
	case IntervalMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether the interval is one of the supported widths.
func (i Interval) Valid() bool {
	return i.Duration() > 0
}

// PickInterval chooses a bucket width from the query range so a chart stays
// readable regardless of how long a range the caller asks for.
func PickInterval(start, end time.Time) Interval {
	span := end.Sub(start)
	switch {
	case span <= 24*time.Hour:
		return IntervalMinute15
	case span <= 7*24*time.Hour:
		return IntervalHour
	case span <= 14*24*time.Hour:
		return IntervalDay
	case span <= 90*24*time.Hour:
		return IntervalWeek
	default:
		return IntervalMonth
	}
}

// Aggregation selects how values inside a bucket collapse to one number.
type Aggregation string

// Supported aggregations.
const (
	AggregationAvg Aggregation = "AVG"
	AggregationMin Aggregation = "MIN"
	AggregationMax Aggregation = "MAX"
)

// Valid reports whether the aggregation is supported.
func (a Aggregation) Valid() bool {
	switch a {
	case AggregationAvg, AggregationMin, AggregationMax:
		return true
	}
	return false
}

// SeriesQuery describes one aggregated historical read.
type SeriesQuery struct {
	OrganizationID string
	SiteID         string
	ZoneIDs        []string
	Fields         []string
	SensorID       string
	Start          time.Time
	End            time.Time
	Interval       Interval
	Aggregation    Aggregation
}

// Validate checks required fields and fills defaults for interval and
// aggregation.
func (q *SeriesQuery) Validate() error {
	if q.OrganizationID == "" {
		return errors.New("series: missing organization id")
	}
	if q.SiteID == "" {
		return errors.New("series: missing site id")
	}
	if len(q.ZoneIDs) == 0 {
		return errors.New("series: missing zone ids")
	}
	if len(q.Fields) == 0 {
		return errors.New("series: missing fields")
	}
	if q.Start.IsZero() || q.End.IsZero() {
		return errors.New("series: missing time range")
	}
	if !q.End.After(q.Start) {
		return errors.New("series: end must be after start")
	}
	if q.Interval == "" {
		q.Interval = PickInterval(q.Start, q.End)
	}
	if !q.Interval.Valid() {
		return errors.New("series: unsupported interval")
	}
	if q.Aggregation == "" {
		q.Aggregation = AggregationAvg
	}
	if !q.Aggregation.Valid() {
		return errors.New("series: unsupported aggregation")
	}
	return nil
}

// SeriesPoint is one aggregated bucket.
type SeriesPoint struct {
	Bucket time.Time `json:"bucket"`
	Value  float64   `json:"value"`
	Count  int       `json:"count"`
}

// SeriesGroup holds one (zone, field) line of points in bucket order.
type SeriesGroup struct {
	ZoneID string        `json:"zoneId"`
	Field  string        `json:"field"`
	Points []SeriesPoint `json:"points"`
}

// SeriesReader serves aggregated historical series from the analytical store.
type SeriesReader interface {
	QuerySeries(ctx context.Context, query SeriesQuery) ([]SeriesGroup, error)
}
