package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	state "agrisense-cloud/internal/state/domain"
)

// Store is an in-memory current-state backend used when no database is
// configured and by tests. All maps are guarded by a single mutex.
type Store struct {
	mu      sync.Mutex
	sensors map[string]*state.SensorState
	zones   map[string]state.ZoneConfig
	aliases map[string]struct{}
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		sensors: map[string]*state.SensorState{},
		zones:   map[string]state.ZoneConfig{},
		aliases: map[string]struct{}{},
	}
}

func zoneKey(orgID, siteID, zoneID string) string {
	return orgID + "/" + siteID + "/" + zoneID
}

// PutSensor seeds or replaces a sensor record.
func (s *Store) PutSensor(path state.SensorPath, record state.SensorState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := record
	clone.Fields = cloneFields(record.Fields)
	s.sensors[path.String()] = &clone
}

// PutZone seeds or replaces a zone configuration.
func (s *Store) PutZone(orgID, siteID, zoneID string, cfg state.ZoneConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones[zoneKey(orgID, siteID, zoneID)] = cfg
}

// RegisterAlias adds a field alias to the registry.
func (s *Store) RegisterAlias(aliases ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, alias := range aliases {
		s.aliases[alias] = struct{}{}
	}
}

// Get returns a copy of the sensor state, or (nil, nil) when absent.
func (s *Store) Get(_ context.Context, path state.SensorPath) (*state.SensorState, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sensors[path.String()]
	if !ok {
		return nil, nil
	}
	clone := *record
	clone.Fields = cloneFields(record.Fields)
	return &clone, nil
}

// ApplyReading merges the update into the stored record.
func (s *Store) ApplyReading(_ context.Context, path state.SensorPath, update state.SensorUpdate) error {
	if err := path.Validate(); err != nil {
		return err
	}
	if len(update.Fields) == 0 {
		return errors.New("memory store: empty field update")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sensors[path.String()]
	if !ok {
		return errors.New("memory store: sensor not found")
	}
	if record.Fields == nil {
		record.Fields = map[string]state.SensorField{}
	}
	for alias, field := range update.Fields {
		record.Fields[alias] = field
	}
	record.LastReading = update.LastReading
	record.IsOnline = update.IsOnline
	return nil
}

// MarkOffline flags up to limit online sensors last heard before cutoff.
func (s *Store) MarkOffline(_ context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		return 0, errors.New("memory store: non-positive limit")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	marked := 0
	for _, record := range s.sensors {
		if marked >= limit {
			break
		}
		if record.IsOnline && !record.LastReading.IsZero() && record.LastReading.Before(cutoff) {
			record.IsOnline = false
			marked++
		}
	}
	return marked, nil
}

// ZoneView exposes the store's zone documents under the zone repository
// contract, which has its own Get signature.
type ZoneView struct {
	store *Store
}

// Zones returns a zone repository view over the store.
func (s *Store) Zones() *ZoneView {
	return &ZoneView{store: s}
}

// Get returns the zone configuration, or (nil, nil) when absent.
func (v *ZoneView) Get(_ context.Context, orgID, siteID, zoneID string) (*state.ZoneConfig, error) {
	s := v.store
	if orgID == "" || siteID == "" || zoneID == "" {
		return nil, errors.New("memory store: empty zone path component")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.zones[zoneKey(orgID, siteID, zoneID)]
	if !ok {
		return nil, nil
	}
	clone := cfg
	return &clone, nil
}

// RegisteredAliases returns a copy of the alias set.
func (s *Store) RegisteredAliases(_ context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.aliases))
	for alias := range s.aliases {
		out[alias] = struct{}{}
	}
	return out, nil
}

func cloneFields(in map[string]state.SensorField) map[string]state.SensorField {
	if in == nil {
		return nil
	}
	out := make(map[string]state.SensorField, len(in))
	for alias, field := range in {
		out[alias] = field
	}
	return out
}
