package ingest

import "errors"

// ReadingValue is one measured value with its unit. Value is a pointer so a
// missing value can be told apart from a literal zero.
type ReadingValue struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
}

// SensorReading is one sensor's batch entry: a unix-seconds timestamp plus a
// map of field alias to reading. Ephemeral; lives only inside one request.
type SensorReading struct {
	SensorID  string                  `json:"sensorId"`
	Timestamp int64                   `json:"timestamp"`
	Readings  map[string]ReadingValue `json:"readings"`
}

// BatchRequest is a full ingestion request for one zone.
type BatchRequest struct {
	OrganizationID string          `json:"organizationId"`
	SiteID         string          `json:"siteId"`
	ZoneID         string          `json:"zoneId"`
	Sensors        []SensorReading `json:"sensors"`
}

// Validate checks the batch envelope. Per-sensor problems are reported in the
// processing report, not here.
func (b BatchRequest) Validate() error {
	if b.OrganizationID == "" {
		return ErrMissingOrganization
	}
	if b.SiteID == "" {
		return ErrMissingSite
	}
	if b.ZoneID == "" {
		return ErrMissingZone
	}
	if len(b.Sensors) == 0 {
		return ErrMissingSensors
	}
	return nil
}

// ProcessedSensor records one successfully ingested sensor.
type ProcessedSensor struct {
	SensorID      string   `json:"sensorId"`
	FieldsUpdated []string `json:"fieldsUpdated"`
	Timestamp     string   `json:"timestamp"`
}

// BatchError records one per-sensor failure, referenced by batch index.
type BatchError struct {
	Index    int    `json:"index"`
	SensorID string `json:"sensorId,omitempty"`
	Error    string `json:"error"`
}

// Report is the outcome of processing one batch. Partial success is normal:
// failed sensors are collected in Errors while the rest proceed.
type Report struct {
	Processed         int
	Total             int
	Sensors           []ProcessedSensor
	Errors            []BatchError
	AnalyticsDegraded bool
}

// Success reports whether at least one sensor was processed.
func (r Report) Success() bool {
	return r.Processed > 0
}

// Envelope validation errors surfaced as a single top-level failure.
var (
	ErrMissingOrganization = errors.New("ingest: missing required field: organizationId")
	ErrMissingSite         = errors.New("ingest: missing required field: siteId")
	ErrMissingZone         = errors.New("ingest: missing required field: zoneId")
	ErrMissingSensors      = errors.New("ingest: missing or invalid sensors array")
)
