package frost

import (
	"testing"
	"time"

	state "agrisense-cloud/internal/state/domain"
)

func f64(v float64) *float64 { return &v }

func ts(value string) *time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &parsed
}

func TestDecideReasonOrder(t *testing.T) {
	now := time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC)
	temp := f64(30)

	cases := []struct {
		name     string
		temp     *float64
		settings state.FrostSettings
		trigger  bool
		reason   string
	}{
		{
			name:     "disabled",
			temp:     temp,
			settings: state.FrostSettings{Enabled: false, TempThresholdF: f64(32)},
			reason:   ReasonDisabled,
		},
		{
			name: "before prediction window",
			temp: temp,
			settings: state.FrostSettings{
				Enabled:        true,
				PredStart:      ts("2026-02-01T04:00:00Z"),
				TempThresholdF: f64(32),
			},
			reason: ReasonOutsideWindow,
		},
		{
			name: "after prediction window",
			temp: temp,
			settings: state.FrostSettings{
				Enabled:        true,
				PredEnd:        ts("2026-02-01T02:00:00Z"),
				TempThresholdF: f64(32),
			},
			reason: ReasonOutsideWindow,
		},
		{
			name:     "missing threshold",
			temp:     temp,
			settings: state.FrostSettings{Enabled: true},
			reason:   ReasonMissingThreshold,
		},
		{
			name:     "missing temperature",
			temp:     nil,
			settings: state.FrostSettings{Enabled: true, TempThresholdF: f64(32)},
			reason:   ReasonMissingTemperature,
		},
		{
			name:     "temperature not low enough",
			temp:     f64(33),
			settings: state.FrostSettings{Enabled: true, TempThresholdF: f64(32)},
			reason:   ReasonTemperatureHigh,
		},
		{
			name:     "triggers at threshold",
			temp:     f64(32),
			settings: state.FrostSettings{Enabled: true, TempThresholdF: f64(32)},
			trigger:  true,
			reason:   ReasonOK,
		},
		{
			name:     "triggers below threshold",
			temp:     f64(28.5),
			settings: state.FrostSettings{Enabled: true, TempThresholdF: f64(32)},
			trigger:  true,
			reason:   ReasonOK,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := Decide(now, tc.temp, tc.settings)
			if decision.Trigger != tc.trigger {
				t.Fatalf("trigger = %v, want %v", decision.Trigger, tc.trigger)
			}
			if decision.Reason != tc.reason {
				t.Fatalf("reason = %q, want %q", decision.Reason, tc.reason)
			}
		})
	}
}

func TestDecideUnboundedWindow(t *testing.T) {
	now := time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC)
	settings := state.FrostSettings{Enabled: true, TempThresholdF: f64(32)}
	decision := Decide(now, f64(20), settings)
	if !decision.Trigger {
		t.Fatalf("expected trigger with no window bounds, got reason %q", decision.Reason)
	}

	settings.PredStart = ts("2026-02-01T00:00:00Z")
	settings.PredEnd = ts("2026-02-01T06:00:00Z")
	decision = Decide(now, f64(20), settings)
	if !decision.Trigger {
		t.Fatalf("expected trigger inside window, got reason %q", decision.Reason)
	}
}
