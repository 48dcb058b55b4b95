package application

import (
	"context"
	"errors"
	"log"
	"time"

	analytics "agrisense-cloud/internal/analytics/domain"
	frost "agrisense-cloud/internal/frost/domain"
	"agrisense-cloud/internal/observability/metrics"
	state "agrisense-cloud/internal/state/domain"
)

const temperatureField = "temperature"

// JobQueue enqueues a named job with key-value overrides. Delivery is
// at-least-once; the ingest key lets the job deduplicate.
type JobQueue interface {
	Enqueue(ctx context.Context, job string, overrides map[string]string) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// TriggerResult reports what happened after one ingestion.
type TriggerResult struct {
	Decision    frost.Decision
	IngestKey   string
	LeaseDenied bool
	LeaseExpiry time.Time
	Enqueued    bool
}

// Service decides, after a successful ingestion, whether to enqueue the
// frost-prediction job for the zone, guarded by the per-zone run lease.
type Service struct {
	lease    frost.Lease
	queue    JobQueue
	jobName  string
	leaseFor time.Duration
	clock    Clock
	logger   *log.Logger
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithClock overrides the default clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a frost trigger service. leaseFor must exceed the
// worst-case prediction job runtime plus margin.
func NewService(lease frost.Lease, queue JobQueue, jobName string, leaseFor time.Duration, logger *log.Logger, opts ...ServiceOption) (*Service, error) {
	if lease == nil {
		return nil, errors.New("frost: nil lease")
	}
	if queue == nil {
		return nil, errors.New("frost: nil job queue")
	}
	if jobName == "" {
		return nil, errors.New("frost: empty job name")
	}
	if leaseFor <= 0 {
		return nil, errors.New("frost: non-positive lease duration")
	}
	if logger == nil {
		logger = log.Default()
	}
	service := &Service{
		lease:    lease,
		queue:    queue,
		jobName:  jobName,
		leaseFor: leaseFor,
		clock:    systemClock{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// AfterIngest evaluates the frost policy against the rows just written and,
// when warranted, acquires the zone lease and enqueues the prediction job.
// A denied lease is a normal "already running" outcome, not an error.
func (s *Service) AfterIngest(ctx context.Context, zoneID string, rows []analytics.Row, settings state.FrostSettings) (TriggerResult, error) {
	if s == nil {
		return TriggerResult{}, errors.New("frost: nil service")
	}
	if zoneID == "" {
		return TriggerResult{}, errors.New("frost: empty zone id")
	}

	now := s.clock.Now()
	temperature := latestTemperature(rows)
	decision := frost.Decide(now, temperature, settings)
	metrics.IncFrostDecision(decision.Reason)
	result := TriggerResult{Decision: decision}
	if !decision.Trigger {
		return result, nil
	}

	newest := newestRowTime(rows)
	result.IngestKey = frost.IngestKey(zoneID, newest, len(rows))

	acquired, err := s.lease.Acquire(ctx, zoneID, s.leaseFor)
	if err != nil {
		metrics.IncLeaseAcquisition("error")
		return result, err
	}
	if !acquired.Acquired {
		metrics.IncLeaseAcquisition("denied")
		result.LeaseDenied = true
		result.LeaseExpiry = acquired.ExpiresAt
		s.logger.Printf("frost: zone %s already running, lease held until %s", zoneID, acquired.ExpiresAt.Format(time.RFC3339))
		return result, nil
	}
	metrics.IncLeaseAcquisition("acquired")
	result.LeaseExpiry = acquired.ExpiresAt

	overrides := map[string]string{
		"zoneId":   zoneID,
		"ingestId": result.IngestKey,
	}
	if err := s.queue.Enqueue(ctx, s.jobName, overrides); err != nil {
		// The lease expires on its own; the next qualifying ingestion
		// retries the enqueue.
		metrics.IncFrostEnqueue("error")
		s.logger.Printf("frost: enqueue %s for zone %s failed: %v", s.jobName, zoneID, err)
		return result, nil
	}
	metrics.IncFrostEnqueue("success")
	result.Enqueued = true
	s.logger.Printf("frost: enqueued %s for zone %s ingest=%s", s.jobName, zoneID, result.IngestKey)
	return result, nil
}

// latestTemperature picks the temperature for the decision from the rows just
// written: primary-flagged temperature rows win over the rest, and among the
// candidates the latest ISO timestamp wins.
func latestTemperature(rows []analytics.Row) *float64 {
	var candidates []analytics.Row
	for _, row := range rows {
		if row.Field == temperatureField && row.PrimarySensor {
			candidates = append(candidates, row)
		}
	}
	if len(candidates) == 0 {
		for _, row := range rows {
			if row.Field == temperatureField {
				candidates = append(candidates, row)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, row := range candidates[1:] {
		if row.Timestamp > best.Timestamp {
			best = row
		}
	}
	value := best.Value
	return &value
}

func newestRowTime(rows []analytics.Row) time.Time {
	var newest time.Time
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339, row.Timestamp)
		if err != nil {
			continue
		}
		if ts.After(newest) {
			newest = ts
		}
	}
	return newest
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
