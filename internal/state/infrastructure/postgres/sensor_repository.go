package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	state "agrisense-cloud/internal/state/domain"
)

// SensorStateRepository is the Postgres implementation of the current-state
// store. Field maps are stored as jsonb; partial merges run read-modify-write
// inside a transaction so concurrent updates to the same sensor serialize.
type SensorStateRepository struct {
	db *sql.DB
}

// NewSensorStateRepository constructs a repository.
func NewSensorStateRepository(db *sql.DB) *SensorStateRepository {
	return &SensorStateRepository{db: db}
}

// Get returns the sensor state at path, or (nil, nil) when absent.
func (r *SensorStateRepository) Get(ctx context.Context, path state.SensorPath) (*state.SensorState, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	if err := path.Validate(); err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
SELECT status, model, name, fields, last_reading, is_online
FROM sensors
WHERE org_id = $1 AND site_id = $2 AND zone_id = $3 AND sensor_id = $4
LIMIT 1`, path.OrganizationID, path.SiteID, path.ZoneID, path.SensorID)

	var (
		record      state.SensorState
		fieldsRaw   []byte
		lastReading sql.NullTime
	)
	if err := row.Scan(&record.Status, &record.Model, &record.Name, &fieldsRaw, &lastReading, &record.IsOnline); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &record.Fields); err != nil {
			return nil, err
		}
	}
	if lastReading.Valid {
		record.LastReading = lastReading.Time.UTC()
	}
	return &record, nil
}

// ApplyReading merges the update into the stored record in one transaction.
// Field aliases present in the update replace their stored entries; all other
// aliases are kept, so the field map only grows.
func (r *SensorStateRepository) ApplyReading(ctx context.Context, path state.SensorPath, update state.SensorUpdate) error {
	if r == nil || r.db == nil {
		return errors.New("sensor repo: nil db")
	}
	if err := path.Validate(); err != nil {
		return err
	}
	if len(update.Fields) == 0 {
		return errors.New("sensor repo: empty field update")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var fieldsRaw []byte
	err = tx.QueryRowContext(ctx, `
SELECT fields FROM sensors
WHERE org_id = $1 AND site_id = $2 AND zone_id = $3 AND sensor_id = $4
FOR UPDATE`, path.OrganizationID, path.SiteID, path.ZoneID, path.SensorID).Scan(&fieldsRaw)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return errors.New("sensor repo: sensor not found")
		}
		return err
	}

	fields := map[string]state.SensorField{}
	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &fields); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	for alias, field := range update.Fields {
		fields[alias] = field
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE sensors
SET fields = $5, last_reading = $6, is_online = $7, updated_at = NOW()
WHERE org_id = $1 AND site_id = $2 AND zone_id = $3 AND sensor_id = $4`,
		path.OrganizationID, path.SiteID, path.ZoneID, path.SensorID,
		merged, update.LastReading, update.IsOnline); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// MarkOffline flags up to limit online sensors whose last reading is older
// than cutoff and returns how many were flagged.
func (r *SensorStateRepository) MarkOffline(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("sensor repo: nil db")
	}
	if limit <= 0 {
		return 0, errors.New("sensor repo: non-positive limit")
	}

	result, err := r.db.ExecContext(ctx, `
WITH stale AS (
	SELECT org_id, site_id, zone_id, sensor_id
	FROM sensors
	WHERE is_online = TRUE AND last_reading < $1
	LIMIT $2
	FOR UPDATE SKIP LOCKED
)
UPDATE sensors s
SET is_online = FALSE, updated_at = NOW()
FROM stale
WHERE s.org_id = stale.org_id
  AND s.site_id = stale.site_id
  AND s.zone_id = stale.zone_id
  AND s.sensor_id = stale.sensor_id`, cutoff, limit)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
