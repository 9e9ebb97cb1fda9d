package jobs

import "time"

// EnqueueOption customizes a single Enqueue call. Options override the
// defaults registered for the job type; unset options leave them alone.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	retries         int
	retriesSet      bool
	delay           time.Duration
	callback        string
	failureCallback string
}

func applyEnqueueOptions(opts []EnqueueOption) enqueueOptions {
	var eo enqueueOptions
	for _, opt := range opts {
		opt(&eo)
	}
	return eo
}

// WithRetries overrides the registered retry budget for this job.
func WithRetries(n int) EnqueueOption {
	return func(eo *enqueueOptions) {
		eo.retries = n
		eo.retriesSet = true
	}
}

// WithDelay asks the provider to hold the first delivery attempt for d.
func WithDelay(d time.Duration) EnqueueOption {
	return func(eo *enqueueOptions) {
		eo.delay = d
	}
}

// WithCallback sets a URL the provider notifies once the job is delivered.
func WithCallback(url string) EnqueueOption {
	return func(eo *enqueueOptions) {
		eo.callback = url
	}
}

// WithFailureCallback sets a URL the provider notifies when all delivery
// attempts are exhausted.
func WithFailureCallback(url string) EnqueueOption {
	return func(eo *enqueueOptions) {
		eo.failureCallback = url
	}
}
