package vectorstore

import "strings"

// nonRetryableKeywords mark connection errors that will never succeed on
// retry: the caller passed a bad collection name, a field the schema
// doesn't have, a dimension mismatch, or a malformed param.
var nonRetryableKeywords = []string{
	"schema",
	"field-not-found",
	"dimension",
	"param",
}

// retryableKeywords mark transient errors worth another attempt.
var retryableKeywords = []string{
	"timeout",
	"connection",
	"unavailable",
	"rpc",
	"channel",
	"deadline",
}

// classifyConnectError decides whether a connect(uri) failure should be
// retried. Unrecognized errors default to retryable — a conservative
// choice, since backing off a little on an unknown error costs far less
// than giving up on one that would have cleared on its own.
func classifyConnectError(err error) (retryable bool) {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range nonRetryableKeywords {
		if strings.Contains(msg, kw) {
			return false
		}
	}
	for _, kw := range retryableKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return true
}
