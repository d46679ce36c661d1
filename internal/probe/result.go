package probe

import "time"

// Outcome is the tagged state of a probe result.
type Outcome int

const (
	OutcomeUnhealthy Outcome = iota
	OutcomeHealthy
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHealthy:
		return "healthy"
	default:
		return "unhealthy"
	}
}

// Result is the immutable outcome of probing one endpoint.
// A latency is carried only by healthy results.
type Result struct {
	name    string
	outcome Outcome
	latency time.Duration
}

// Healthy builds a reachable result with the measured latency.
func Healthy(name string, latency time.Duration) Result {
	if latency < 0 {
		latency = 0
	}
	return Result{name: name, outcome: OutcomeHealthy, latency: latency}
}

// Unhealthy builds an unreachable result.
func Unhealthy(name string) Result {
	return Result{name: name, outcome: OutcomeUnhealthy}
}

func (r Result) Name() string {
	return r.name
}

func (r Result) Outcome() Outcome {
	return r.outcome
}

func (r Result) Healthy() bool {
	return r.outcome == OutcomeHealthy
}

// Latency returns the measured latency and true for healthy results.
func (r Result) Latency() (time.Duration, bool) {
	if r.outcome != OutcomeHealthy {
		return 0, false
	}
	return r.latency, true
}
