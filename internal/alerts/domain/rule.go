package alerts

import (
	"errors"
	"time"
)

// Operator values as stored on alert rules.
type Operator string

const (
	OperatorGreater        Operator = "gt"
	OperatorLess           Operator = "lt"
	OperatorGreaterOrEqual Operator = "gte"
	OperatorLessOrEqual    Operator = "lte"
	OperatorEqual          Operator = "eq"
)

// Valid returns true when the operator is supported.
func (o Operator) Valid() bool {
	switch o {
	case OperatorGreater, OperatorLess, OperatorGreaterOrEqual, OperatorLessOrEqual, OperatorEqual:
		return true
	default:
		return false
	}
}

// Evaluate applies the operator to value against threshold. Unknown
// operators never match.
func (o Operator) Evaluate(value, threshold float64) bool {
	switch o {
	case OperatorGreater:
		return value > threshold
	case OperatorLess:
		return value < threshold
	case OperatorGreaterOrEqual:
		return value >= threshold
	case OperatorLessOrEqual:
		return value <= threshold
	case OperatorEqual:
		return value == threshold
	default:
		return false
	}
}

// Symbol renders the operator for notification text.
func (o Operator) Symbol() string {
	switch o {
	case OperatorGreater:
		return ">"
	case OperatorLess:
		return "<"
	case OperatorGreaterOrEqual:
		return "≥"
	case OperatorLessOrEqual:
		return "≤"
	case OperatorEqual:
		return "="
	default:
		return string(o)
	}
}

// AlertRule is an organization-scoped threshold rule authored externally and
// read-only to the engine. ActiveTimeStart/End are "HH:mm" 24-hour strings;
// empty means unbounded (always active).
type AlertRule struct {
	ID              string
	OrganizationID  string
	Name            string
	FieldAlias      string
	Operator        Operator
	Threshold       float64
	Enabled         bool
	NotifyUserIDs   []string
	ActiveTimeStart string
	ActiveTimeEnd   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks rule invariants.
func (r AlertRule) Validate() error {
	if r.ID == "" {
		return errors.New("alert rule: empty id")
	}
	if r.OrganizationID == "" {
		return errors.New("alert rule: empty organization id")
	}
	if r.Name == "" {
		return errors.New("alert rule: empty name")
	}
	if r.FieldAlias == "" {
		return errors.New("alert rule: empty field alias")
	}
	if !r.Operator.Valid() {
		return errors.New("alert rule: invalid operator")
	}
	return nil
}
