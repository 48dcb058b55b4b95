package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	analytics "agrisense-cloud/internal/analytics/domain"
)

const measurement = "sensor_rows"

// RowWriter appends analytical rows to an InfluxDB bucket. It is the
// alternate analytical backend for deployments that already run Influx.
type RowWriter struct {
	write api.WriteAPIBlocking
}

// NewRowWriter constructs a writer over the given client, org and bucket.
func NewRowWriter(client influxdb2.Client, org, bucket string) (*RowWriter, error) {
	if client == nil {
		return nil, errors.New("influx writer: nil client")
	}
	if org == "" || bucket == "" {
		return nil, errors.New("influx writer: empty org or bucket")
	}
	return &RowWriter{write: client.WriteAPIBlocking(org, bucket)}, nil
}

// InsertRows writes one point per row. Path components become tags so the
// series cardinality follows the sensor topology.
func (w *RowWriter) InsertRows(ctx context.Context, rows []analytics.Row) error {
	if w == nil || w.write == nil {
		return errors.New("influx writer: nil write api")
	}
	if len(rows) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339, row.Timestamp)
		if err != nil {
			return fmt.Errorf("influx writer: bad timestamp %q: %w", row.Timestamp, err)
		}
		point := influxdb2.NewPointWithMeasurement(measurement).
			AddTag("org_id", row.OrganizationID).
			AddTag("site_id", row.SiteID).
			AddTag("zone_id", row.ZoneID).
			AddTag("sensor_id", row.SensorID).
			AddTag("field", row.Field).
			AddField("value", row.Value).
			AddField("unit", row.Unit).
			AddField("sensor_model", row.SensorModel).
			AddField("sensor_name", row.SensorName).
			AddField("primary_sensor", row.PrimarySensor).
			SetTime(ts.UTC())
		points = append(points, point)
	}

	return w.write.WritePoint(ctx, points...)
}
