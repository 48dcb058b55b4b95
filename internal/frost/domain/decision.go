package frost

import (
	"time"

	state "agrisense-cloud/internal/state/domain"
)

// Decision reasons, checked in order; the first failing reason wins.
const (
	ReasonDisabled           = "disabled"
	ReasonOutsideWindow      = "outside_prediction_window"
	ReasonMissingThreshold   = "missing_temp_threshold"
	ReasonMissingTemperature = "missing_temperature"
	ReasonTemperatureHigh    = "temperature_not_low_enough"
	ReasonOK                 = "ok"
)

// Decision is the outcome of the frost-trigger policy.
type Decision struct {
	Trigger bool
	Reason  string
}

// Decide applies the frost-trigger policy for a zone. temperatureF is the
// latest current temperature in degrees Fahrenheit, nil when no valid
// temperature was observed. Pure; callers supply the clock value.
func Decide(now time.Time, temperatureF *float64, settings state.FrostSettings) Decision {
	if !settings.Enabled {
		return Decision{Reason: ReasonDisabled}
	}
	if settings.PredStart != nil && now.Before(*settings.PredStart) {
		return Decision{Reason: ReasonOutsideWindow}
	}
	if settings.PredEnd != nil && now.After(*settings.PredEnd) {
		return Decision{Reason: ReasonOutsideWindow}
	}
	if settings.TempThresholdF == nil {
		return Decision{Reason: ReasonMissingThreshold}
	}
	if temperatureF == nil {
		return Decision{Reason: ReasonMissingTemperature}
	}
	if *temperatureF > *settings.TempThresholdF {
		return Decision{Reason: ReasonTemperatureHigh}
	}
	return Decision{Trigger: true, Reason: ReasonOK}
}
