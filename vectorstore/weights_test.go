package vectorstore

import "testing"

func TestNormalizeWeights_RescalesToSumOne(t *testing.T) {
	weights := map[string]float64{"goal": 0.6, "locator": 0.2, "user_task": 0.1, "url": 0.1}
	out := NormalizeWeights(weights, weights)

	var sum float64
	for _, v := range out {
		sum += v
	}
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected weights to sum to 1, got %v", sum)
	}
}

func TestNormalizeWeights_ClampsNegatives(t *testing.T) {
	weights := map[string]float64{"goal": -0.5, "locator": 0.5}
	out := NormalizeWeights(weights, weights)

	if out["goal"] != 0 {
		t.Errorf("expected negative weight clamped to 0, got %v", out["goal"])
	}
	if out["locator"] != 1.0 {
		t.Errorf("expected remaining weight renormalized to 1.0, got %v", out["locator"])
	}
}

func TestNormalizeWeights_AllZeroFallsBackToDefaults(t *testing.T) {
	defaults := map[string]float64{"goal": 0.6, "locator": 0.4}
	weights := map[string]float64{"goal": 0, "locator": 0}

	out := NormalizeWeights(weights, defaults)

	if out["goal"] != 0.6 || out["locator"] != 0.4 {
		t.Errorf("expected fallback to defaults, got %v", out)
	}
}

func TestNormalizeWeights_AllNegativeFallsBackToDefaults(t *testing.T) {
	defaults := map[string]float64{"a": 1.0}
	weights := map[string]float64{"a": -3}

	out := NormalizeWeights(weights, defaults)

	if out["a"] != 1.0 {
		t.Errorf("expected fallback to defaults for all-negative input, got %v", out)
	}
}
