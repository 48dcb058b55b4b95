package postgres

import (
	"context"
	"database/sql"
	"errors"

	state "agrisense-cloud/internal/state/domain"
)

// ZoneConfigRepository reads zone configuration documents stored as jsonb.
type ZoneConfigRepository struct {
	db *sql.DB
}

// NewZoneConfigRepository constructs a repository.
func NewZoneConfigRepository(db *sql.DB) *ZoneConfigRepository {
	return &ZoneConfigRepository{db: db}
}

// Get returns the decoded zone configuration, or (nil, nil) when the zone
// does not exist.
func (r *ZoneConfigRepository) Get(ctx context.Context, orgID, siteID, zoneID string) (*state.ZoneConfig, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("zone repo: nil db")
	}
	if orgID == "" || siteID == "" || zoneID == "" {
		return nil, errors.New("zone repo: empty zone path component")
	}

	var doc []byte
	err := r.db.QueryRowContext(ctx, `
SELECT document FROM zones
WHERE org_id = $1 AND site_id = $2 AND zone_id = $3
LIMIT 1`, orgID, siteID, zoneID).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if len(doc) == 0 {
		return &state.ZoneConfig{}, nil
	}
	cfg, err := state.DecodeZoneDocument(doc)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AliasRegistry serves the set of field aliases known to the platform.
type AliasRegistry struct {
	db *sql.DB
}

// NewAliasRegistry constructs a registry backed by the field_aliases table.
func NewAliasRegistry(db *sql.DB) *AliasRegistry {
	return &AliasRegistry{db: db}
}

// RegisteredAliases returns every registered field alias.
func (r *AliasRegistry) RegisteredAliases(ctx context.Context) (map[string]struct{}, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alias registry: nil db")
	}

	rows, err := r.db.QueryContext(ctx, `SELECT alias FROM field_aliases`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aliases := map[string]struct{}{}
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, err
		}
		aliases[alias] = struct{}{}
	}
	return aliases, rows.Err()
}
