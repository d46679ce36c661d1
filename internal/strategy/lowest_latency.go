package strategy

import (
	"time"

	"github.com/angeloszaimis/apiswitch/internal/probe"
)

type lowestLatencyStrategy struct{}

// Select returns the healthy endpoint with the smallest latency. Walking in
// declaration order and replacing only on a strictly smaller latency makes the
// first-declared endpoint win ties.
func (l *lowestLatencyStrategy) Select(order []string, results map[string]probe.Result, exclude string) (string, bool) {
	var chosen string
	var best time.Duration
	found := false

	for _, name := range order {
		if name == exclude {
			continue
		}

		res, ok := results[name]
		if !ok {
			continue
		}

		latency, healthy := res.Latency()
		if !healthy {
			continue
		}

		if !found || latency < best {
			chosen = name
			best = latency
			found = true
		}
	}

	return chosen, found
}

func NewLowestLatencyStrategy() Strategy {
	return &lowestLatencyStrategy{}
}
