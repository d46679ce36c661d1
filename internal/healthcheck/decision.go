package healthcheck

import "time"

// Outcome classifies what a check run did.
type Outcome int

const (
	OutcomeNoActive Outcome = iota
	OutcomeHealthy
	OutcomeUnhealthy
	OutcomeNoAlternative
	OutcomeSwitched
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoActive:
		return "no active endpoint"
	case OutcomeHealthy:
		return "healthy"
	case OutcomeUnhealthy:
		return "unhealthy"
	case OutcomeNoAlternative:
		return "no alternative found"
	case OutcomeSwitched:
		return "switched"
	default:
		return "unknown"
	}
}

// Decision is the result of CheckAndSwitch. Active is the endpoint active after
// the run; Previous is set when Switched. Latency is that of the endpoint now
// active, when it was measured healthy.
type Decision struct {
	Active   string
	Previous string
	Switched bool
	Outcome  Outcome
	Latency  time.Duration
}
