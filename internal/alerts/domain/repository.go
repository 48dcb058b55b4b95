package alerts

import "context"

// UserToken pairs a user with their stored delivery token.
type UserToken struct {
	UserID string
	Token  string
}

// RuleRepository loads alert rules for evaluation.
type RuleRepository interface {
	ListEnabled(ctx context.Context, organizationID string) ([]AlertRule, error)
}

// UserRepository resolves notification targets and reconciles dead tokens.
type UserRepository interface {
	// GetTokens returns the users among userIDs that have a non-empty
	// delivery token stored.
	GetTokens(ctx context.Context, userIDs []string) ([]UserToken, error)
	// ClearToken nulls out the stored token for a user whose token the
	// delivery service reported as permanently invalid.
	ClearToken(ctx context.Context, userID string) error
}
