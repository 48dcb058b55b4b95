package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	analytics "agrisense-cloud/internal/analytics/domain"
)

// RowStore is an in-memory analytical backend used when no database is
// configured and by tests.
type RowStore struct {
	mu   sync.Mutex
	rows []analytics.Row
}

// NewRowStore constructs an empty store.
func NewRowStore() *RowStore {
	return &RowStore{}
}

// InsertRows appends all rows. A bad timestamp rejects the whole batch before
// anything is stored, matching the transactional backend.
func (s *RowStore) InsertRows(_ context.Context, rows []analytics.Row) error {
	for _, row := range rows {
		if _, err := time.Parse(time.RFC3339, row.Timestamp); err != nil {
			return fmt.Errorf("memory rows: bad timestamp %q: %w", row.Timestamp, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

// Rows returns a copy of everything stored, in insertion order.
func (s *RowStore) Rows() []analytics.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]analytics.Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// QuerySeries aggregates stored rows into buckets aligned the same way as the
// SQL backend (epoch-aligned to 2000-01-01).
func (s *RowStore) QuerySeries(_ context.Context, query analytics.SeriesQuery) ([]analytics.SeriesGroup, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	zoneSet := map[string]bool{}
	for _, zoneID := range query.ZoneIDs {
		zoneSet[zoneID] = true
	}
	fieldSet := map[string]bool{}
	for _, field := range query.Fields {
		fieldSet[field] = true
	}

	origin := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	width := query.Interval.Duration()

	type groupKey struct {
		zoneID string
		field  string
	}
	type bucketAgg struct {
		sum   float64
		min   float64
		max   float64
		count int
	}
	byGroup := map[groupKey]map[time.Time]*bucketAgg{}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.OrganizationID != query.OrganizationID || row.SiteID != query.SiteID {
			continue
		}
		if !zoneSet[row.ZoneID] || !fieldSet[row.Field] {
			continue
		}
		if query.SensorID != "" && row.SensorID != query.SensorID {
			continue
		}
		ts, err := time.Parse(time.RFC3339, row.Timestamp)
		if err != nil {
			continue
		}
		ts = ts.UTC()
		if ts.Before(query.Start) || !ts.Before(query.End) {
			continue
		}
		bucket := origin.Add(ts.Sub(origin) / width * width)

		key := groupKey{zoneID: row.ZoneID, field: row.Field}
		buckets := byGroup[key]
		if buckets == nil {
			buckets = map[time.Time]*bucketAgg{}
			byGroup[key] = buckets
		}
		agg := buckets[bucket]
		if agg == nil {
			agg = &bucketAgg{min: row.Value, max: row.Value}
			buckets[bucket] = agg
		}
		agg.sum += row.Value
		if row.Value < agg.min {
			agg.min = row.Value
		}
		if row.Value > agg.max {
			agg.max = row.Value
		}
		agg.count++
	}

	keys := make([]groupKey, 0, len(byGroup))
	for key := range byGroup {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].zoneID != keys[j].zoneID {
			return keys[i].zoneID < keys[j].zoneID
		}
		return keys[i].field < keys[j].field
	})

	groups := make([]analytics.SeriesGroup, 0, len(keys))
	for _, key := range keys {
		buckets := byGroup[key]
		times := make([]time.Time, 0, len(buckets))
		for bucket := range buckets {
			times = append(times, bucket)
		}
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

		points := make([]analytics.SeriesPoint, 0, len(times))
		for _, bucket := range times {
			agg := buckets[bucket]
			var value float64
			switch query.Aggregation {
			case analytics.AggregationMin:
				value = agg.min
			case analytics.AggregationMax:
				value = agg.max
			default:
				value = agg.sum / float64(agg.count)
			}
			points = append(points, analytics.SeriesPoint{Bucket: bucket, Value: value, Count: agg.count})
		}
		groups = append(groups, analytics.SeriesGroup{ZoneID: key.zoneID, Field: key.field, Points: points})
	}
	return groups, nil
}
