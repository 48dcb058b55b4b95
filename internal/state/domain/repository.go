package state

import (
	"context"
	"time"
)

// SensorStateRepository provides point reads and partial-merge updates over
// sensor current-state records.
type SensorStateRepository interface {
	// Get returns the sensor state at path, or (nil, nil) when absent.
	Get(ctx context.Context, path SensorPath) (*SensorState, error)
	// ApplyReading merges the update into the stored record in one atomic
	// write: field aliases in the update are replaced, all others kept.
	ApplyReading(ctx context.Context, path SensorPath, update SensorUpdate) error
	// MarkOffline flags up to limit online sensors whose last reading is
	// older than cutoff and returns how many were flagged.
	MarkOffline(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// ZoneConfigRepository loads zone configuration snapshots.
type ZoneConfigRepository interface {
	// Get returns the zone config, or (nil, nil) when the zone is absent.
	Get(ctx context.Context, organizationID, siteID, zoneID string) (*ZoneConfig, error)
}

// AliasRegistry exposes the set of registered reading aliases. Unknown
// aliases are accepted during ingestion but logged.
type AliasRegistry interface {
	RegisteredAliases(ctx context.Context) (map[string]struct{}, error)
}
