package vectorstore

import "testing"

func TestReadHitField_TypedAccess(t *testing.T) {
	hit := Hit{Fields: map[string]interface{}{"score": float64(0.95), "name": "goal-cache"}}

	score, ok := ReadHitField[float64](hit, "score")
	if !ok || score != 0.95 {
		t.Errorf("expected score 0.95, ok=true, got %v, ok=%v", score, ok)
	}

	name, ok := ReadHitField[string](hit, "name")
	if !ok || name != "goal-cache" {
		t.Errorf("expected name goal-cache, got %v, ok=%v", name, ok)
	}
}

func TestReadHitField_MissingKey(t *testing.T) {
	hit := Hit{Fields: map[string]interface{}{}}
	_, ok := ReadHitField[string](hit, "missing")
	if ok {
		t.Error("expected ok=false for missing field")
	}
}

func TestReadHitField_TypeMismatch(t *testing.T) {
	hit := Hit{Fields: map[string]interface{}{"count": "not-an-int"}}
	v, ok := ReadHitField[int](hit, "count")
	if ok || v != 0 {
		t.Errorf("expected zero value and ok=false on type mismatch, got %v, %v", v, ok)
	}
}

func TestReadHitStringField_Convenience(t *testing.T) {
	hit := Hit{Fields: map[string]interface{}{"url_pattern": "https://example.com/*"}}
	if got := ReadHitStringField(hit, "url_pattern"); got != "https://example.com/*" {
		t.Errorf("expected url pattern, got %q", got)
	}
	if got := ReadHitStringField(hit, "absent"); got != "" {
		t.Errorf("expected empty string for absent field, got %q", got)
	}
}
