package gemini

import (
	"errors"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", errors.New("googleapi: Error 429: rate limit exceeded"), true},
		{"server error", errors.New("googleapi: Error 500: internal"), true},
		{"unavailable", errors.New("rpc error: code = Unavailable"), true},
		{"bad request", errors.New("googleapi: Error 400: invalid argument"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
