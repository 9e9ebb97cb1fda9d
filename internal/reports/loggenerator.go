package reports

import (
	"context"
	"fmt"
	"log/slog"
)

// Ensure LogGenerator satisfies the Generator contract at compile time.
var _ Generator = (*LogGenerator)(nil)

// LogGenerator is the built-in Generator. It records the request in the log
// and returns a summary pointing at a conventionally named location without
// materializing a file. Deployments wire a real generator in its place.
type LogGenerator struct {
	logger *slog.Logger
}

// NewLogGenerator creates a log-backed generator.
func NewLogGenerator(logger *slog.Logger) *LogGenerator {
	return &LogGenerator{logger: logger}
}

// Generate logs the request and returns an empty report summary.
func (g *LogGenerator) Generate(ctx context.Context, req Request) (Summary, error) {
	scope := req.OrganizationID
	if scope == "" {
		scope = "global"
	}
	location := fmt.Sprintf("reports/%s/%s-%s.%s",
		scope, req.ReportType, req.PeriodStart.UTC().Format("2006-01-02"), req.Format)

	g.logger.InfoContext(ctx, "report generated",
		"report_type", req.ReportType,
		"organization_id", scope,
		"location", location,
	)

	return Summary{Location: location}, nil
}
