package health

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/angeloszaimis/apiswitch/internal/probe"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// Duration encodes as a Go duration string such as "312ms".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Record is the persisted health of one endpoint.
type Record struct {
	Status    Status    `json:"status"`
	LastCheck time.Time `json:"last_check"`
	Latency   *Duration `json:"latency,omitempty"`
}

// FromResult builds the record for a probe result observed at checkedAt.
func FromResult(res probe.Result, checkedAt time.Time) Record {
	rec := Record{Status: StatusUnhealthy, LastCheck: checkedAt.UTC()}
	if latency, ok := res.Latency(); ok {
		d := Duration(latency)
		rec.Status = StatusHealthy
		rec.Latency = &d
	}
	return rec
}

// LatencyValue returns the recorded latency, if any.
func (r Record) LatencyValue() (time.Duration, bool) {
	if r.Latency == nil {
		return 0, false
	}
	return time.Duration(*r.Latency), true
}
