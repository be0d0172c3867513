package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// LoggingConfig contains logging configuration.
// Supports structured (JSON) and human-readable (text) formats.
type LoggingConfig struct {
	Level      string
	Format     string
	Output     string
	TimeFormat string
}

// DevelopmentConfig contains settings that relax logging for local use.
type DevelopmentConfig struct {
	DebugLogging bool
	PrettyLogs   bool
}

// ============================================================================
// ProductionLogger Implementation
// ============================================================================

// ProductionLogger is the Logger used outside of tests: JSON logs in
// production, human-readable text in development, with an optional
// component tag for filtering (see ComponentAwareLogger).
type ProductionLogger struct {
	level       string
	debug       bool
	serviceName string
	component   string
	format      string
	output      io.Writer
}

// NewProductionLogger creates a logger from LoggingConfig, writing to
// stdout (or stderr when logging.Output == "stderr").
func NewProductionLogger(logging LoggingConfig, dev DevelopmentConfig, serviceName string) Logger {
	var output io.Writer = os.Stdout
	if logging.Output == "stderr" {
		output = os.Stderr
	}
	return NewProductionLoggerWithOutput(logging, dev, serviceName, output)
}

// NewProductionLoggerWithOutput is NewProductionLogger with an explicit
// sink, so a caller can fan log lines out to a rotating file (e.g.
// io.MultiWriter(os.Stdout, rotatingFile)) instead of the fixed
// stdout/stderr choice LoggingConfig.Output offers.
func NewProductionLoggerWithOutput(logging LoggingConfig, dev DevelopmentConfig, serviceName string, output io.Writer) Logger {
	return &ProductionLogger{
		level:       strings.ToLower(logging.Level),
		debug:       dev.DebugLogging || logging.Level == "debug",
		serviceName: serviceName,
		format:      logging.Format,
		output:      output,
	}
}

// WithComponent returns a logger tagged with component, sharing the
// same output and level configuration.
func (p *ProductionLogger) WithComponent(component string) Logger {
	clone := *p
	clone.component = component
	return &clone
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields)
}

func (p *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("INFO", msg, fields)
}

func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields)
}

func (p *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("ERROR", msg, fields)
}

func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields)
}

func (p *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	p.logEvent("WARN", msg, fields)
}

func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields)
	}
}

func (p *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.debug {
		p.logEvent("DEBUG", msg, fields)
	}
}

func (p *ProductionLogger) logEvent(level, msg string, fields map[string]interface{}) {
	timestamp := time.Now().Format(time.RFC3339)
	component := p.component
	if component == "" {
		component = "framework"
	}

	if p.format == "json" {
		logEntry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level,
			"service":   p.serviceName,
			"component": component,
			"message":   msg,
		}
		for k, v := range fields {
			logEntry[k] = v
		}
		if data, err := json.Marshal(logEntry); err == nil {
			fmt.Fprintln(p.output, string(data))
		}
		return
	}

	var fieldStr strings.Builder
	if len(fields) > 0 {
		fieldStr.WriteString(" ")
		for k, v := range fields {
			fieldStr.WriteString(fmt.Sprintf("%s=%v ", k, v))
		}
	}
	fmt.Fprintf(p.output, "%s [%s] [%s:%s] %s%s\n",
		timestamp, level, p.serviceName, component, msg, fieldStr.String())
}
