package exporter

import (
	"github.com/rs/zerolog"

	"github.com/artpar/checked/core/validation"
)

// LogExporter writes check outcomes to a logger.
// Useful for debugging and development.
type LogExporter struct {
	logger zerolog.Logger
}

// NewLogExporter creates a new log exporter.
func NewLogExporter(logger zerolog.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// Name returns the exporter name.
func (e *LogExporter) Name() string {
	return "log"
}

// Observe logs rejections at info level and everything else at debug.
func (e *LogExporter) Observe(ev validation.Event) {
	level := zerolog.DebugLevel
	if ev.Outcome == validation.OutcomeRejected {
		level = zerolog.InfoLevel
	}
	e.logger.WithLevel(level).
		Str("func", ev.Func).
		Str("param", ev.Param).
		Str("expected", ev.Expected).
		Str("outcome", string(ev.Outcome)).
		Msg("argument checked")
}

// NoopExporter discards all events.
// Useful as a placeholder or for testing.
type NoopExporter struct{}

// NewNoopExporter creates a new noop exporter.
func NewNoopExporter() *NoopExporter {
	return &NoopExporter{}
}

// Name returns the exporter name.
func (e *NoopExporter) Name() string {
	return "noop"
}

// Observe discards the event.
func (e *NoopExporter) Observe(validation.Event) {}
