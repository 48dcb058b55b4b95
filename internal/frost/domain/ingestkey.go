package frost

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// IngestKey derives the deterministic idempotency key for one ingestion
// outcome: the zone, the newest row timestamp and the row count, joined with
// a fixed separator and digested. Repeated ingestion of the same batch yields
// the same key so the downstream job runner can deduplicate.
func IngestKey(zoneID string, newest time.Time, rowCount int) string {
	payload := zoneID + "|" + newest.UTC().Format(time.RFC3339) + "|" + strconv.Itoa(rowCount)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
