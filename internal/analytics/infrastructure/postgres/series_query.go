package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	analytics "agrisense-cloud/internal/analytics/domain"
)

// SeriesQuery serves aggregated historical reads over the analytical table.
type SeriesQuery struct {
	db    *sql.DB
	table string
}

// NewSeriesQuery constructs a query with the default table name.
func NewSeriesQuery(db *sql.DB, opts ...QueryOption) *SeriesQuery {
	q := &SeriesQuery{db: db, table: defaultRowTable}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// QueryOption configures the series query.
type QueryOption func(*SeriesQuery)

// WithQueryTable overrides the default table name for queries.
func WithQueryTable(table string) QueryOption {
	return func(q *SeriesQuery) {
		if q != nil && table != "" {
			q.table = table
		}
	}
}

// QuerySeries buckets rows with date_bin and aggregates each bucket. Results
// come back grouped per (zone, field) with points in bucket order.
func (q *SeriesQuery) QuerySeries(ctx context.Context, query analytics.SeriesQuery) ([]analytics.SeriesGroup, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("series query: nil db")
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var aggExpr string
	switch query.Aggregation {
	case analytics.AggregationMin:
		aggExpr = "MIN(value)"
	case analytics.AggregationMax:
		aggExpr = "MAX(value)"
	default:
		aggExpr = "AVG(value)"
	}

	args := []any{query.OrganizationID, query.SiteID, query.Start.UTC(), query.End.UTC(), query.Interval.Duration().String()}
	zonePlaceholders := make([]string, 0, len(query.ZoneIDs))
	for _, zoneID := range query.ZoneIDs {
		args = append(args, zoneID)
		zonePlaceholders = append(zonePlaceholders, fmt.Sprintf("$%d", len(args)))
	}
	fieldPlaceholders := make([]string, 0, len(query.Fields))
	for _, field := range query.Fields {
		args = append(args, field)
		fieldPlaceholders = append(fieldPlaceholders, fmt.Sprintf("$%d", len(args)))
	}
	sensorFilter := ""
	if query.SensorID != "" {
		args = append(args, query.SensorID)
		sensorFilter = fmt.Sprintf("AND sensor_id = $%d", len(args))
	}

	stmt := fmt.Sprintf(`
SELECT
	zone_id,
	field,
	date_bin($5::interval, ts, TIMESTAMPTZ '2000-01-01') AS bucket,
	%s AS value,
	COUNT(*) AS n
FROM %s
WHERE org_id = $1
	AND site_id = $2
	AND ts >= $3
	AND ts < $4
	AND zone_id IN (%s)
	AND field IN (%s)
	%s
GROUP BY zone_id, field, bucket
ORDER BY zone_id, field, bucket ASC`,
		aggExpr, q.table,
		strings.Join(zonePlaceholders, ", "),
		strings.Join(fieldPlaceholders, ", "),
		sensorFilter)

	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type groupKey struct {
		zoneID string
		field  string
	}
	byGroup := map[groupKey][]analytics.SeriesPoint{}
	order := make([]groupKey, 0)

	for rows.Next() {
		var (
			key    groupKey
			bucket time.Time
			value  sql.NullFloat64
			count  int
		)
		if err := rows.Scan(&key.zoneID, &key.field, &bucket, &value, &count); err != nil {
			return nil, err
		}
		if !value.Valid {
			continue
		}
		if _, ok := byGroup[key]; !ok {
			order = append(order, key)
		}
		byGroup[key] = append(byGroup[key], analytics.SeriesPoint{
			Bucket: bucket.UTC(),
			Value:  value.Float64,
			Count:  count,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].zoneID != order[j].zoneID {
			return order[i].zoneID < order[j].zoneID
		}
		return order[i].field < order[j].field
	})
	groups := make([]analytics.SeriesGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, analytics.SeriesGroup{
			ZoneID: key.zoneID,
			Field:  key.field,
			Points: byGroup[key],
		})
	}
	return groups, nil
}
