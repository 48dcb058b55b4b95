package notify

import "context"

// Message is one multicast push notification.
type Message struct {
	Title  string
	Body   string
	Data   map[string]string
	Tokens []string
}

// TokenResult is the delivery outcome for a single token. Unregistered marks
// tokens the service classified as permanently invalid; those are eligible
// for cleanup, other failures are transient.
type TokenResult struct {
	Token        string
	OK           bool
	Unregistered bool
	Err          string
}

// SendReport aggregates per-token outcomes of one multicast send.
type SendReport struct {
	SuccessCount int
	FailureCount int
	Results      []TokenResult
}

// Pusher delivers multicast notifications to opaque device tokens.
type Pusher interface {
	SendMulticast(ctx context.Context, msg Message) (SendReport, error)
}
