package circuitbreaker

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
	"github.com/angeloszaimis/apiswitch/internal/probe"
)

// Inner is the probe being guarded.
type Inner interface {
	Probe(ctx context.Context, ep endpoint.Endpoint, timeout time.Duration) probe.Result
}

// Prober skips probes of endpoints whose breaker is open and reports them
// unhealthy without touching the network.
type Prober struct {
	inner    Inner
	registry *Registry
	logger   *slog.Logger
}

func NewProber(inner Inner, registry *Registry, logger *slog.Logger) *Prober {
	return &Prober{inner: inner, registry: registry, logger: logger}
}

func (p *Prober) Probe(ctx context.Context, ep endpoint.Endpoint, timeout time.Duration) probe.Result {
	b := p.registry.Get(ep.Name)
	if !b.Allow() {
		p.logger.Debug("Circuit open, skipping probe", slog.String("endpoint", ep.Name))
		return probe.Unhealthy(ep.Name)
	}

	res := p.inner.Probe(ctx, ep, timeout)

	before := b.State()
	if res.Healthy() {
		b.RecordSuccess()
	} else {
		b.RecordFailure()
	}

	if after := b.State(); after != before {
		p.logger.Info("Circuit state changed",
			slog.String("endpoint", ep.Name),
			slog.String("from", before.String()),
			slog.String("to", after.String()))
	}

	return res
}
