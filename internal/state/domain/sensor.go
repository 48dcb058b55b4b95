package state

import (
	"errors"
	"time"
)

// Sensor status values as stored on the current-state record.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// SensorPath addresses a sensor document in the hierarchy.
type SensorPath struct {
	OrganizationID string
	SiteID         string
	ZoneID         string
	SensorID       string
}

// Validate checks that every path segment is present.
func (p SensorPath) Validate() error {
	if p.OrganizationID == "" {
		return errors.New("state: empty organization id")
	}
	if p.SiteID == "" {
		return errors.New("state: empty site id")
	}
	if p.ZoneID == "" {
		return errors.New("state: empty zone id")
	}
	if p.SensorID == "" {
		return errors.New("state: empty sensor id")
	}
	return nil
}

// String renders the hierarchical document path.
func (p SensorPath) String() string {
	return "organizations/" + p.OrganizationID +
		"/sites/" + p.SiteID +
		"/zones/" + p.ZoneID +
		"/sensors/" + p.SensorID
}

// SensorField is the latest value of one reading alias on a sensor.
type SensorField struct {
	CurrentValue float64   `json:"currentValue"`
	Unit         string    `json:"unit"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// SensorState is the low-latency current-state record for one sensor.
type SensorState struct {
	Status      string
	Model       string
	Name        string
	Fields      map[string]SensorField
	LastReading time.Time
	IsOnline    bool
}

// Active reports whether the sensor accepts readings.
func (s SensorState) Active() bool {
	return s.Status == StatusActive
}

// SensorUpdate is a partial merge applied by ingestion. Field aliases not
// present in Fields are left untouched on the stored record.
type SensorUpdate struct {
	Fields      map[string]SensorField
	LastReading time.Time
	IsOnline    bool
}
