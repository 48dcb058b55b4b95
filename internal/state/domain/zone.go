package state

import (
	"encoding/json"
	"time"
)

// FrostSettings holds the zone's frost-prediction configuration. Pointer
// fields model optional bounds: a nil bound leaves that side unbounded and a
// nil threshold means the zone has no temperature threshold configured.
type FrostSettings struct {
	Enabled        bool
	PredStart      *time.Time
	PredEnd        *time.Time
	TempThresholdF *float64
}

// ZoneConfig is the read-only per-zone configuration consulted during
// ingestion. Readings maps a field alias to the sensor designated primary
// for that field.
type ZoneConfig struct {
	Readings map[string]string
	Frost    FrostSettings
}

// PrimarySensorFor reports whether sensorID is the designated primary for the
// given field alias.
func (z ZoneConfig) PrimarySensorFor(field, sensorID string) bool {
	if len(z.Readings) == 0 || sensorID == "" {
		return false
	}
	return z.Readings[field] == sensorID
}

// zoneDocument mirrors the stored zone payload. Frost settings appear either
// nested under frostSettings or flattened at the top level (legacy writers);
// the nested layout wins when both are present.
type zoneDocument struct {
	Readings map[string]string `json:"readings"`

	FrostSettings *frostDocument `json:"frostSettings"`

	FrostEnabled        *bool    `json:"frostEnabled"`
	FrostPredStart      *string  `json:"frostPredStart"`
	FrostPredEnd        *string  `json:"frostPredEnd"`
	FrostTempThresholdF *float64 `json:"frostTempThresholdF"`
}

type frostDocument struct {
	Enabled        bool     `json:"enabled"`
	PredStart      *string  `json:"predStart"`
	PredEnd        *string  `json:"predEnd"`
	TempThresholdF *float64 `json:"tempThresholdF"`
}

// DecodeZoneDocument parses a raw zone payload into a ZoneConfig, resolving
// the legacy flattened frost layout at the read boundary.
func DecodeZoneDocument(raw []byte) (ZoneConfig, error) {
	var doc zoneDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ZoneConfig{}, err
	}

	cfg := ZoneConfig{Readings: doc.Readings}

	if doc.FrostSettings != nil {
		cfg.Frost = FrostSettings{
			Enabled:        doc.FrostSettings.Enabled,
			PredStart:      parseOptionalTime(doc.FrostSettings.PredStart),
			PredEnd:        parseOptionalTime(doc.FrostSettings.PredEnd),
			TempThresholdF: doc.FrostSettings.TempThresholdF,
		}
		return cfg, nil
	}

	if doc.FrostEnabled != nil {
		cfg.Frost = FrostSettings{
			Enabled:        *doc.FrostEnabled,
			PredStart:      parseOptionalTime(doc.FrostPredStart),
			PredEnd:        parseOptionalTime(doc.FrostPredEnd),
			TempThresholdF: doc.FrostTempThresholdF,
		}
	}
	return cfg, nil
}

func parseOptionalTime(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}
