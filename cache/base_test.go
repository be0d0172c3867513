package cache

import "testing"

func TestNormalizeSimilarity_PassesThroughInRange(t *testing.T) {
	for _, v := range []float64{0, 0.5, 0.9, 1.0} {
		if got := NormalizeSimilarity(v); got != v {
			t.Errorf("NormalizeSimilarity(%v) = %v, want identity", v, got)
		}
	}
}

func TestNormalizeSimilarity_ClampsNegative(t *testing.T) {
	if got := NormalizeSimilarity(-3); got != 0 {
		t.Errorf("expected 0 for negative score, got %v", got)
	}
}

func TestNormalizeSimilarity_SquashesAboveOne(t *testing.T) {
	got := NormalizeSimilarity(3)
	if got <= 0 || got >= 1 {
		t.Errorf("expected squashed score in (0,1), got %v", got)
	}
}

func TestNormalizeSimilarity_Monotone(t *testing.T) {
	a := NormalizeSimilarity(2)
	b := NormalizeSimilarity(5)
	if a >= b {
		t.Errorf("expected monotone increasing squash, got a=%v b=%v", a, b)
	}
}
