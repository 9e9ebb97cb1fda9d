package billing

import (
	"context"
	"log/slog"
)

// Ensure LogProcessor satisfies the Processor contract at compile time.
var _ Processor = (*LogProcessor)(nil)

// LogProcessor is the built-in Processor. It records each event in the log
// and acknowledges it. Deployments wire the real ledger integration in its
// place.
type LogProcessor struct {
	logger *slog.Logger
}

// NewLogProcessor creates a log-backed processor.
func NewLogProcessor(logger *slog.Logger) *LogProcessor {
	return &LogProcessor{logger: logger}
}

// ProcessEvent logs the event and acknowledges it.
func (p *LogProcessor) ProcessEvent(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "billing event applied",
		"source", event.Source,
		"event_id", event.ID,
		"event_type", event.Type,
	)
	return nil
}
