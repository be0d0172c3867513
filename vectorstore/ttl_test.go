package vectorstore

import (
	"testing"
	"time"
)

func TestFilterNotExpired_DropsExpiredHits(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	hits := []Hit{
		{Fields: map[string]interface{}{"id": "a", "expire_at": now.Add(-time.Hour).Unix()}},
		{Fields: map[string]interface{}{"id": "b", "expire_at": now.Add(time.Hour).Unix()}},
		{Fields: map[string]interface{}{"id": "c"}}, // no TTL set
	}

	kept := FilterNotExpired(hits, "expire_at", now)

	if len(kept) != 2 {
		t.Fatalf("expected 2 hits kept, got %d", len(kept))
	}
	ids := map[string]bool{}
	for _, h := range kept {
		ids[ReadHitStringField(h, "id")] = true
	}
	if !ids["b"] || !ids["c"] {
		t.Errorf("expected hits b and c kept, got %v", ids)
	}
}
