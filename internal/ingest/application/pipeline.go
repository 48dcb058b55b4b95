package application

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	analytics "agrisense-cloud/internal/analytics/domain"
	"agrisense-cloud/internal/eventing"
	frostapp "agrisense-cloud/internal/frost/application"
	"agrisense-cloud/internal/ingest/application/events"
	ingest "agrisense-cloud/internal/ingest/domain"
	"agrisense-cloud/internal/observability/metrics"
	state "agrisense-cloud/internal/state/domain"
)

// Pipeline validates sensor batches, applies current-state updates, builds
// analytical rows and performs the dual write. Failed sensors are collected;
// the batch keeps going. A failed analytical bulk insert degrades the batch
// but does not roll back the current-state writes already committed.
type Pipeline struct {
	sensors state.SensorStateRepository
	zones   state.ZoneConfigRepository
	aliases state.AliasRegistry
	rows    analytics.RowWriter
	frost   *frostapp.Service
	bus     eventing.EventBus
	logger  *log.Logger
}

// PipelineOption customizes the pipeline.
type PipelineOption func(*Pipeline)

// WithFrostTrigger wires the post-ingest frost trigger service.
func WithFrostTrigger(service *frostapp.Service) PipelineOption {
	return func(p *Pipeline) {
		p.frost = service
	}
}

// WithEventBus wires the bus on which sensor-updated events are published.
func WithEventBus(bus eventing.EventBus) PipelineOption {
	return func(p *Pipeline) {
		p.bus = bus
	}
}

// NewPipeline constructs an ingestion pipeline.
func NewPipeline(sensors state.SensorStateRepository, zones state.ZoneConfigRepository, aliases state.AliasRegistry, rows analytics.RowWriter, logger *log.Logger, opts ...PipelineOption) (*Pipeline, error) {
	if sensors == nil {
		return nil, errors.New("ingest: nil sensor repository")
	}
	if zones == nil {
		return nil, errors.New("ingest: nil zone repository")
	}
	if rows == nil {
		return nil, errors.New("ingest: nil row writer")
	}
	if logger == nil {
		logger = log.Default()
	}
	pipeline := &Pipeline{
		sensors: sensors,
		zones:   zones,
		aliases: aliases,
		rows:    rows,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(pipeline)
	}
	return pipeline, nil
}

// Process ingests one batch. The returned error is reserved for envelope
// validation; per-sensor failures land in the report.
func (p *Pipeline) Process(ctx context.Context, req ingest.BatchRequest) (ingest.Report, error) {
	if p == nil {
		return ingest.Report{}, errors.New("ingest: nil pipeline")
	}
	if err := req.Validate(); err != nil {
		return ingest.Report{}, err
	}

	started := time.Now()
	report := ingest.Report{Total: len(req.Sensors)}

	registered := p.registeredAliases(ctx)

	// One zone snapshot per batch; every sensor's primary flags come from it.
	zoneCfg := p.zoneSnapshot(ctx, req.OrganizationID, req.SiteID, req.ZoneID)

	var allRows []analytics.Row
	var updatedEvents []events.SensorStateUpdated

	for i, sensor := range req.Sensors {
		rows, processed, evt, batchErr := p.processSensor(ctx, req, i, sensor, registered, zoneCfg)
		if batchErr != nil {
			report.Errors = append(report.Errors, *batchErr)
			continue
		}
		allRows = append(allRows, rows...)
		report.Sensors = append(report.Sensors, processed)
		report.Processed++
		updatedEvents = append(updatedEvents, evt)
	}

	if len(allRows) > 0 {
		if err := p.rows.InsertRows(ctx, allRows); err != nil {
			// Availability over consistency: current-state writes stand
			// even when the analytical copy is lost.
			report.AnalyticsDegraded = true
			metrics.IncAnalyticsDegraded()
			p.logger.Printf("ingest: analytical insert of %d rows failed: %v", len(allRows), err)
		} else {
			metrics.AddAnalyticsRows(len(allRows))
			p.logger.Printf("ingest: inserted %d rows for %d sensors", len(allRows), report.Processed)
		}
	}

	p.publishUpdates(ctx, updatedEvents)

	if p.frost != nil && len(allRows) > 0 && !report.AnalyticsDegraded {
		if _, err := p.frost.AfterIngest(ctx, req.ZoneID, allRows, zoneCfg.Frost); err != nil {
			p.logger.Printf("ingest: frost trigger for zone %s: %v", req.ZoneID, err)
		}
	}

	metrics.ObserveIngest(report.Processed, report.Total, time.Since(started))
	return report, nil
}

func (p *Pipeline) processSensor(ctx context.Context, req ingest.BatchRequest, index int, sensor ingest.SensorReading, registered map[string]struct{}, zoneCfg state.ZoneConfig) ([]analytics.Row, ingest.ProcessedSensor, events.SensorStateUpdated, *ingest.BatchError) {
	fail := func(reason, message string) *ingest.BatchError {
		metrics.IncIngestSensorError(reason)
		return &ingest.BatchError{Index: index, SensorID: sensor.SensorID, Error: message}
	}

	if sensor.SensorID == "" {
		metrics.IncIngestSensorError("missing_sensor_id")
		return nil, ingest.ProcessedSensor{}, events.SensorStateUpdated{}, &ingest.BatchError{Index: index, Error: "Missing sensorId"}
	}
	if sensor.Timestamp <= 0 {
		return nil, ingest.ProcessedSensor{}, events.SensorStateUpdated{}, fail("invalid_timestamp", "Missing or invalid timestamp (must be Unix timestamp in seconds)")
	}
	if len(sensor.Readings) == 0 {
		return nil, ingest.ProcessedSensor{}, events.SensorStateUpdated{}, fail("missing_readings", "Missing or invalid readings object")
	}

	aliases := sortedAliases(sensor.Readings)
	for _, alias := range aliases {
		reading := sensor.Readings[alias]
		if reading.Value == nil {
			return nil, ingest.ProcessedSensor{}, events.SensorStateUpdated{}, fail("invalid_reading", "Reading '"+alias+"' is missing value")
		}
		if reading.Unit == "" {
			return nil, ingest.ProcessedSensor{}, events.SensorStateUpdated{}, fail("invalid_reading", "Reading '"+alias+"' is missing unit")
		}
		if registered != nil {
			if _, ok := registered[alias]; !ok {
				p.logger.Printf("ingest: reading alias %q not registered; sensor %s may have unrecognized field", alias, sensor.SensorID)
			}
		}
	}

	path := state.SensorPath{
		OrganizationID: req.OrganizationID,
		SiteID:         req.SiteID,
		ZoneID:         req.ZoneID,
		SensorID:       sensor.SensorID,
	}
	current, err := p.sensors.Get(ctx, path)
	if err != nil {
		return nil, ingest.ProcessedSensor{}, events.SensorStateUpdated{}, fail("state_read", err.Error())
	}
	if current == nil {
		return nil, ingest.ProcessedSensor{}, events.SensorStateUpdated{}, fail("not_found", "Sensor not found at path: "+path.String())
	}
	if !current.Active() {
		status := current.Status
		if status == "" {
			status = "unknown"
		}
		return nil, ingest.ProcessedSensor{}, events.SensorStateUpdated{}, fail("inactive", "Sensor is inactive. Status: "+status)
	}

	readingTime := time.Unix(sensor.Timestamp, 0).UTC()
	iso := readingTime.Format(time.RFC3339)

	update := state.SensorUpdate{
		Fields:      make(map[string]state.SensorField, len(sensor.Readings)),
		LastReading: readingTime,
		IsOnline:    true,
	}
	for _, alias := range aliases {
		reading := sensor.Readings[alias]
		update.Fields[alias] = state.SensorField{
			CurrentValue: *reading.Value,
			Unit:         reading.Unit,
			LastUpdated:  readingTime,
		}
	}
	if err := p.sensors.ApplyReading(ctx, path, update); err != nil {
		return nil, ingest.ProcessedSensor{}, events.SensorStateUpdated{}, fail("state_write", err.Error())
	}

	model := current.Model
	if model == "" {
		model = "Unknown"
	}
	name := current.Name
	if name == "" {
		name = "Unnamed"
	}

	rows := make([]analytics.Row, 0, len(aliases))
	for _, alias := range aliases {
		reading := sensor.Readings[alias]
		rows = append(rows, analytics.Row{
			Timestamp:      iso,
			OrganizationID: req.OrganizationID,
			SiteID:         req.SiteID,
			ZoneID:         req.ZoneID,
			SensorID:       sensor.SensorID,
			SensorModel:    model,
			SensorName:     name,
			Field:          alias,
			Value:          *reading.Value,
			Unit:           reading.Unit,
			PrimarySensor:  zoneCfg.PrimarySensorFor(alias, sensor.SensorID),
		})
	}

	merged := make(map[string]state.SensorField, len(current.Fields)+len(update.Fields))
	for alias, field := range current.Fields {
		merged[alias] = field
	}
	for alias, field := range update.Fields {
		merged[alias] = field
	}

	processed := ingest.ProcessedSensor{
		SensorID:      sensor.SensorID,
		FieldsUpdated: aliases,
		Timestamp:     iso,
	}
	evt := events.SensorStateUpdated{
		OrganizationID: req.OrganizationID,
		SiteID:         req.SiteID,
		ZoneID:         req.ZoneID,
		SensorID:       sensor.SensorID,
		Fields:         merged,
		OccurredAt:     readingTime,
	}
	return rows, processed, evt, nil
}

func (p *Pipeline) registeredAliases(ctx context.Context) map[string]struct{} {
	if p.aliases == nil {
		return nil
	}
	registered, err := p.aliases.RegisteredAliases(ctx)
	if err != nil {
		p.logger.Printf("ingest: load registered aliases: %v", err)
		return nil
	}
	return registered
}

func (p *Pipeline) zoneSnapshot(ctx context.Context, organizationID, siteID, zoneID string) state.ZoneConfig {
	cfg, err := p.zones.Get(ctx, organizationID, siteID, zoneID)
	if err != nil {
		p.logger.Printf("ingest: load zone config %s/%s/%s: %v", organizationID, siteID, zoneID, err)
		return state.ZoneConfig{}
	}
	if cfg == nil {
		return state.ZoneConfig{}
	}
	return *cfg
}

func (p *Pipeline) publishUpdates(ctx context.Context, updates []events.SensorStateUpdated) {
	if p.bus == nil {
		return
	}
	for _, evt := range updates {
		if err := p.bus.Publish(ctx, evt); err != nil {
			p.logger.Printf("ingest: publish sensor update %s: %v", evt.SensorID, err)
		}
	}
}

func sortedAliases(readings map[string]ingest.ReadingValue) []string {
	aliases := make([]string, 0, len(readings))
	for alias := range readings {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
