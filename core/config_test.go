package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestProductionLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLoggerWithOutput(
		LoggingConfig{Level: "info", Format: "json"},
		DevelopmentConfig{},
		"autoweb-test",
		&buf,
	)

	logger.Info("navigation started", map[string]interface{}{"url": "https://example.com"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "INFO" {
		t.Errorf("expected level INFO, got %v", entry["level"])
	}
	if entry["service"] != "autoweb-test" {
		t.Errorf("expected service autoweb-test, got %v", entry["service"])
	}
	if entry["url"] != "https://example.com" {
		t.Errorf("expected url field to carry through, got %v", entry["url"])
	}
}

func TestProductionLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLoggerWithOutput(
		LoggingConfig{Level: "info", Format: "text"},
		DevelopmentConfig{},
		"autoweb-test",
		&buf,
	)

	logger.Warn("retrying step", nil)
	out := buf.String()
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "retrying step") {
		t.Errorf("expected text log line with level and message, got %q", out)
	}
}

func TestProductionLoggerDebugGatedByConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLoggerWithOutput(
		LoggingConfig{Level: "info", Format: "text"},
		DevelopmentConfig{},
		"autoweb-test",
		&buf,
	)
	logger.Debug("should not appear", nil)
	if buf.Len() != 0 {
		t.Errorf("expected debug to be suppressed at info level, got %q", buf.String())
	}

	debugLogger := NewProductionLoggerWithOutput(
		LoggingConfig{Level: "debug", Format: "text"},
		DevelopmentConfig{},
		"autoweb-test",
		&buf,
	)
	debugLogger.Debug("should appear", nil)
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected debug to be emitted at debug level, got %q", buf.String())
	}
}

func TestProductionLoggerWithComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer
	base := NewProductionLoggerWithOutput(
		LoggingConfig{Level: "info", Format: "json"},
		DevelopmentConfig{},
		"autoweb-test",
		&buf,
	)
	cal, ok := base.(ComponentAwareLogger)
	if !ok {
		t.Fatal("ProductionLogger must implement ComponentAwareLogger")
	}
	scoped := cal.WithComponent("framework/resilience")
	scoped.Info("breaker opened", nil)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "framework/resilience" {
		t.Errorf("expected component framework/resilience, got %v", entry["component"])
	}
}
