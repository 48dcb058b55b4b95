package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	alerts "agrisense-cloud/internal/alerts/domain"
)

// RuleRepository reads alert rules from Postgres.
type RuleRepository struct {
	db *sql.DB
}

// NewRuleRepository constructs a repository.
func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListEnabled returns every enabled rule for the organization.
func (r *RuleRepository) ListEnabled(ctx context.Context, orgID string) ([]alerts.AlertRule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule repo: nil db")
	}
	if orgID == "" {
		return nil, errors.New("rule repo: empty org id")
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, org_id, name, field_alias, operator, threshold, enabled,
       notify_user_ids, active_time_start, active_time_end, created_at, updated_at
FROM alert_rules
WHERE org_id = $1 AND enabled = TRUE
ORDER BY created_at ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []alerts.AlertRule
	for rows.Next() {
		var (
			rule      alerts.AlertRule
			operator  string
			userIDs   []byte
			timeStart sql.NullString
			timeEnd   sql.NullString
			created   sql.NullTime
			updated   sql.NullTime
		)
		if err := rows.Scan(&rule.ID, &rule.OrganizationID, &rule.Name, &rule.FieldAlias,
			&operator, &rule.Threshold, &rule.Enabled, &userIDs,
			&timeStart, &timeEnd, &created, &updated); err != nil {
			return nil, err
		}
		rule.Operator = alerts.Operator(operator)
		rule.NotifyUserIDs, err = decodeUserIDs(userIDs)
		if err != nil {
			return nil, fmt.Errorf("rule repo: rule %s: %w", rule.ID, err)
		}
		if timeStart.Valid {
			rule.ActiveTimeStart = timeStart.String
		}
		if timeEnd.Valid {
			rule.ActiveTimeEnd = timeEnd.String
		}
		if created.Valid {
			rule.CreatedAt = created.Time.UTC()
		}
		if updated.Valid {
			rule.UpdatedAt = updated.Time.UTC()
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// decodeUserIDs unpacks the notify_user_ids jsonb column, a JSON array of
// user ids. NULL and empty arrays decode to no recipients; blank entries are
// dropped.
func decodeUserIDs(raw []byte) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode notify_user_ids: %w", err)
	}
	out := ids[:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// UserRepository reads and clears push tokens.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository constructs a repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetTokens returns the non-empty push tokens of the given users.
func (r *UserRepository) GetTokens(ctx context.Context, userIDs []string) ([]alerts.UserToken, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	var out []alerts.UserToken
	for _, userID := range userIDs {
		var token sql.NullString
		err := r.db.QueryRowContext(ctx,
			`SELECT push_token FROM users WHERE id = $1`, userID).Scan(&token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return nil, err
		}
		if token.Valid && token.String != "" {
			out = append(out, alerts.UserToken{UserID: userID, Token: token.String})
		}
	}
	return out, nil
}

// ClearToken nulls out a user's push token after the delivery service
// reported it permanently invalid.
func (r *UserRepository) ClearToken(ctx context.Context, userID string) error {
	if r == nil || r.db == nil {
		return errors.New("user repo: nil db")
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET push_token = NULL, updated_at = NOW() WHERE id = $1`,
		userID)
	return err
}
