package jobs

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// jobMetrics holds the instruments shared by the dispatcher and the
// worker handlers. Instruments are created against the global meter
// provider, so they are no-ops until observability is initialized.
type jobMetrics struct {
	enqueued  metric.Int64Counter
	published metric.Int64Counter
	processed metric.Int64Counter
	anomalies metric.Int64Counter
	duration  metric.Float64Histogram
}

func newJobMetrics() *jobMetrics {
	meter := otel.Meter("jobrelay")

	m := &jobMetrics{}
	var err error

	m.enqueued, err = meter.Int64Counter("jobrelay.jobs.enqueued",
		metric.WithDescription("Jobs accepted by the dispatcher"))
	if err != nil {
		otel.Handle(err)
	}

	m.published, err = meter.Int64Counter("jobrelay.jobs.published",
		metric.WithDescription("Jobs handed to the push provider"))
	if err != nil {
		otel.Handle(err)
	}

	m.processed, err = meter.Int64Counter("jobrelay.jobs.processed",
		metric.WithDescription("Job deliveries handled by a worker, by outcome"))
	if err != nil {
		otel.Handle(err)
	}

	m.anomalies, err = meter.Int64Counter("jobrelay.jobs.anomalies",
		metric.WithDescription("Deliveries whose execution record was missing or could not be updated"))
	if err != nil {
		otel.Handle(err)
	}

	m.duration, err = meter.Float64Histogram("jobrelay.jobs.duration",
		metric.WithDescription("Time spent in a job handler"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}

	return m
}
