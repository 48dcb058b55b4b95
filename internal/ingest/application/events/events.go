package events

import (
	"time"

	state "agrisense-cloud/internal/state/domain"
)

// SensorStateUpdated is published after a sensor's current-state record was
// updated by ingestion. Fields carries the full post-update field map.
type SensorStateUpdated struct {
	OrganizationID string
	SiteID         string
	ZoneID         string
	SensorID       string
	Fields         map[string]state.SensorField
	OccurredAt     time.Time
}
