package vectorstore

import (
	"errors"
	"testing"
)

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil error", nil, false},
		{"schema error", errors.New("schema mismatch on collection"), false},
		{"field not found", errors.New("field-not-found: goal"), false},
		{"dimension error", errors.New("dimension mismatch: expected 768"), false},
		{"param error", errors.New("invalid param: limit"), false},
		{"timeout", errors.New("dial tcp: i/o timeout"), true},
		{"connection refused", errors.New("connection refused"), true},
		{"unavailable", errors.New("service unavailable"), true},
		{"rpc error", errors.New("rpc error: code = Internal"), true},
		{"channel closed", errors.New("channel closed unexpectedly"), true},
		{"deadline exceeded", errors.New("context deadline exceeded"), true},
		{"unknown defaults retryable", errors.New("something weird happened"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyConnectError(tt.err); got != tt.retryable {
				t.Errorf("classifyConnectError(%v) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}
