package kb

import "testing"

func TestInferValue_DropsPlaceholders(t *testing.T) {
	for _, raw := range []string{"", "-", "--", "N/A", "null", "None"} {
		if _, ok := inferValue(raw); ok {
			t.Errorf("expected %q to be dropped", raw)
		}
	}
}

func TestInferValue_ParsesCurrencyAndCommas(t *testing.T) {
	iv, ok := inferValue("$1,234.50")
	if !ok {
		t.Fatalf("expected value to be kept")
	}
	if !iv.isNumber || iv.asFloat != 1234.50 {
		t.Errorf("expected numeric 1234.50, got %+v", iv)
	}
}

func TestInferValue_ParsesPercent(t *testing.T) {
	iv, ok := inferValue("42%")
	if !ok {
		t.Fatalf("expected value to be kept")
	}
	if !iv.isNumber || iv.asFloat != 42 || !iv.hadPct {
		t.Errorf("expected numeric 42 with pct marker, got %+v", iv)
	}
}

func TestInferValue_KeepsNonNumericStrings(t *testing.T) {
	iv, ok := inferValue("in stock")
	if !ok {
		t.Fatalf("expected value to be kept")
	}
	if iv.isNumber || iv.asString != "in stock" {
		t.Errorf("expected string value, got %+v", iv)
	}
}

func TestApplyBatchConsistency_MajorityPctKeepsMarker(t *testing.T) {
	values := []inferredValue{
		{asFloat: 10, isNumber: true, hadPct: true},
		{asFloat: 20, isNumber: true, hadPct: true},
		{asFloat: 30, isNumber: true, hadPct: false},
	}
	out := applyBatchConsistency(values)
	if !out[0].hadPct || !out[1].hadPct {
		t.Errorf("expected pct marker kept when majority had it: %+v", out)
	}
}

func TestApplyBatchConsistency_MinorityPctStripsMarker(t *testing.T) {
	values := []inferredValue{
		{asFloat: 10, isNumber: true, hadPct: true},
		{asFloat: 20, isNumber: true, hadPct: false},
		{asFloat: 30, isNumber: true, hadPct: false},
	}
	out := applyBatchConsistency(values)
	for _, v := range out {
		if v.hadPct {
			t.Errorf("expected pct marker stripped for all values, got %+v", out)
		}
	}
}

func TestApplyBatchConsistency_NoNumericValuesIsNoop(t *testing.T) {
	values := []inferredValue{{asString: "a"}, {asString: "b"}}
	out := applyBatchConsistency(values)
	if len(out) != 2 {
		t.Errorf("expected unchanged slice length, got %d", len(out))
	}
}
