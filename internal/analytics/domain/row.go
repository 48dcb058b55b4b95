package analytics

import "context"

// Row is one immutable analytical fact: a single (sensor, field) value at a
// point in time. Timestamp is ISO-8601 UTC so lexicographic order equals
// temporal order.
type Row struct {
	Timestamp      string
	OrganizationID string
	SiteID         string
	ZoneID         string
	SensorID       string
	SensorModel    string
	SensorName     string
	Field          string
	Value          float64
	Unit           string
	PrimarySensor  bool
}

// RowWriter appends rows to the analytical store. Rows are never updated or
// deleted once written.
type RowWriter interface {
	InsertRows(ctx context.Context, rows []Row) error
}
