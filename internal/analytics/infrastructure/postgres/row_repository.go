package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	analytics "agrisense-cloud/internal/analytics/domain"
)

const defaultRowTable = "analytics_rows"

// RowRepository is the Postgres implementation of the append-only analytical
// store.
type RowRepository struct {
	db    *sql.DB
	table string
}

// NewRowRepository constructs a repository with the default table name.
func NewRowRepository(db *sql.DB, opts ...RepositoryOption) *RowRepository {
	repo := &RowRepository{db: db, table: defaultRowTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*RowRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *RowRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// InsertRows appends all rows in one transaction. Rows carry ISO-8601
// timestamps; a row that fails to parse aborts the whole batch.
func (r *RowRepository) InsertRows(ctx context.Context, rows []analytics.Row) error {
	if r == nil || r.db == nil {
		return errors.New("analytics repo: nil db")
	}
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	ts,
	org_id,
	site_id,
	zone_id,
	sensor_id,
	sensor_model,
	sensor_name,
	field,
	value,
	unit,
	primary_sensor
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if row.OrganizationID == "" || row.SiteID == "" || row.ZoneID == "" || row.SensorID == "" || row.Field == "" {
			_ = tx.Rollback()
			return errors.New("analytics repo: invalid row")
		}
		ts, err := time.Parse(time.RFC3339, row.Timestamp)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("analytics repo: bad timestamp %q: %w", row.Timestamp, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			ts.UTC(),
			row.OrganizationID,
			row.SiteID,
			row.ZoneID,
			row.SensorID,
			row.SensorModel,
			row.SensorName,
			row.Field,
			row.Value,
			row.Unit,
			row.PrimarySensor,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
