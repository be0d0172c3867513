package nodes

import "testing"

func TestParseErrorHandlerResponse_Retry(t *testing.T) {
	if !parseErrorHandlerResponse("  retry  ") {
		t.Error("expected case-insensitive RETRY to parse as retry")
	}
}

func TestParseErrorHandlerResponse_Terminate(t *testing.T) {
	if parseErrorHandlerResponse("TERMINATE") {
		t.Error("expected TERMINATE to parse as not-retry")
	}
	if parseErrorHandlerResponse("") {
		t.Error("expected an empty/malformed response to default to not-retry")
	}
}
