package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	alerts "agrisense-cloud/internal/alerts/domain"
	"agrisense-cloud/internal/alerts/notify"
	ingestevents "agrisense-cloud/internal/ingest/application/events"
	"agrisense-cloud/internal/observability/metrics"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Engine evaluates organization alert rules against updated sensor fields and
// fans out notifications. Each invocation is stateless; everything is driven
// by current field values and wall-clock time.
type Engine struct {
	rules  alerts.RuleRepository
	users  alerts.UserRepository
	pusher notify.Pusher
	clock  Clock
	logger *log.Logger
}

// EngineOption customizes the engine.
type EngineOption func(*Engine)

// WithClock overrides the default clock.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine constructs an alert engine.
func NewEngine(rules alerts.RuleRepository, users alerts.UserRepository, pusher notify.Pusher, logger *log.Logger, opts ...EngineOption) (*Engine, error) {
	if rules == nil {
		return nil, errors.New("alerts: nil rule repository")
	}
	if users == nil {
		return nil, errors.New("alerts: nil user repository")
	}
	if pusher == nil {
		return nil, errors.New("alerts: nil pusher")
	}
	if logger == nil {
		logger = log.Default()
	}
	engine := &Engine{
		rules:  rules,
		users:  users,
		pusher: pusher,
		clock:  systemClock{},
		logger: logger,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// HandleSensorUpdated evaluates every enabled rule of the owning organization
// against the updated sensor. Rules are isolated: a failure in one is logged
// and the rest still run.
func (e *Engine) HandleSensorUpdated(ctx context.Context, evt ingestevents.SensorStateUpdated) error {
	if e == nil {
		return errors.New("alerts: nil engine")
	}
	if evt.OrganizationID == "" || evt.SensorID == "" {
		return errors.New("alerts: event missing organization/sensor")
	}
	if len(evt.Fields) == 0 {
		return nil
	}

	rules, err := e.rules.ListEnabled(ctx, evt.OrganizationID)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	now := e.clock.Now()
	for _, rule := range rules {
		if err := e.evaluateRule(ctx, now, rule, evt); err != nil {
			metrics.IncAlertDeliveryError()
			e.logger.Printf("alerts: rule %q failed: %v", rule.Name, err)
		}
	}
	return nil
}

func (e *Engine) evaluateRule(ctx context.Context, now time.Time, rule alerts.AlertRule, evt ingestevents.SensorStateUpdated) error {
	if !alerts.InActiveWindow(now, rule.ActiveTimeStart, rule.ActiveTimeEnd) {
		metrics.IncAlertEvaluation("outside_window")
		return nil
	}

	field, ok := evt.Fields[rule.FieldAlias]
	if !ok {
		metrics.IncAlertEvaluation("field_absent")
		return nil
	}
	value := field.CurrentValue
	if math.IsNaN(value) || math.IsInf(value, 0) {
		metrics.IncAlertEvaluation("not_numeric")
		return nil
	}

	if !rule.Operator.Evaluate(value, rule.Threshold) {
		metrics.IncAlertEvaluation("not_matched")
		return nil
	}
	metrics.IncAlertEvaluation("matched")

	targets, err := e.users.GetTokens(ctx, rule.NotifyUserIDs)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		e.logger.Printf("alerts: rule %q triggered but no delivery tokens found", rule.Name)
		return nil
	}

	tokens := make([]string, 0, len(targets))
	userByToken := make(map[string]string, len(targets))
	for _, target := range targets {
		tokens = append(tokens, target.Token)
		userByToken[target.Token] = target.UserID
	}

	msg := buildMessage(rule, evt, value, field.Unit, tokens)
	report, err := e.pusher.SendMulticast(ctx, msg)
	if err != nil {
		return err
	}
	metrics.AddAlertNotifications(report.SuccessCount)
	e.logger.Printf("alerts: rule %q sent %d notifications (%d failed)", rule.Name, report.SuccessCount, report.FailureCount)

	// Reconcile only after the full send result is in.
	cleared := 0
	for _, result := range report.Results {
		if !result.Unregistered {
			continue
		}
		userID, ok := userByToken[result.Token]
		if !ok {
			continue
		}
		if err := e.users.ClearToken(ctx, userID); err != nil {
			e.logger.Printf("alerts: clear token for user %s: %v", userID, err)
			continue
		}
		cleared++
	}
	if cleared > 0 {
		metrics.AddAlertTokensCleared(cleared)
		e.logger.Printf("alerts: cleared %d invalid delivery token(s)", cleared)
	}
	return nil
}

func buildMessage(rule alerts.AlertRule, evt ingestevents.SensorStateUpdated, value float64, unit string, tokens []string) notify.Message {
	body := fmt.Sprintf("%s %s %v%s (current: %v%s) on sensor %s [%s/%s/%s]",
		rule.FieldAlias,
		rule.Operator.Symbol(),
		rule.Threshold,
		unit,
		value,
		unit,
		evt.SensorID,
		evt.OrganizationID,
		evt.SiteID,
		evt.ZoneID,
	)
	return notify.Message{
		Title: "Alert: " + rule.Name,
		Body:  body,
		Data: map[string]string{
			"orgId":      evt.OrganizationID,
			"siteId":     evt.SiteID,
			"zoneId":     evt.ZoneID,
			"sensorId":   evt.SensorID,
			"fieldAlias": rule.FieldAlias,
			"value":      fmt.Sprintf("%v", value),
			"ruleId":     rule.ID,
		},
		Tokens: tokens,
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
