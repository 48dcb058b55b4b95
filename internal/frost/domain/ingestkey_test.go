package frost

import (
	"testing"
	"time"
)

func TestIngestKeyDeterministic(t *testing.T) {
	newest := time.Date(2026, 2, 1, 3, 15, 0, 0, time.UTC)
	a := IngestKey("zone-1", newest, 12)
	b := IngestKey("zone-1", newest, 12)
	if a != b {
		t.Fatalf("same inputs must yield same key: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestIngestKeyDistinct(t *testing.T) {
	newest := time.Date(2026, 2, 1, 3, 15, 0, 0, time.UTC)
	base := IngestKey("zone-1", newest, 12)

	if IngestKey("zone-2", newest, 12) == base {
		t.Fatal("different zone must change the key")
	}
	if IngestKey("zone-1", newest.Add(time.Second), 12) == base {
		t.Fatal("different newest timestamp must change the key")
	}
	if IngestKey("zone-1", newest, 13) == base {
		t.Fatal("different row count must change the key")
	}
}

func TestIngestKeyNormalizesToUTC(t *testing.T) {
	newest := time.Date(2026, 2, 1, 3, 15, 0, 0, time.UTC)
	local := newest.In(time.FixedZone("UTC+8", 8*3600))
	if IngestKey("zone-1", newest, 5) != IngestKey("zone-1", local, 5) {
		t.Fatal("equal instants in different zones must yield the same key")
	}
}
