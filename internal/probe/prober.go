package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
)

// DefaultTimeout bounds each of the two calls in a probe when no timeout is given.
const DefaultTimeout = 5 * time.Second

// Client performs one minimal request against an endpoint. It returns an error
// only when the round trip did not complete; an HTTP error status is a completed
// round trip and must be reported as nil.
type Client interface {
	Ping(ctx context.Context, ep endpoint.Endpoint) error
}

// Prober runs warm-up plus timed probes through a Client.
type Prober struct {
	client Client
	logger *slog.Logger
	now    func() time.Time
}

func NewProber(client Client, logger *slog.Logger) *Prober {
	return &Prober{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Probe measures one endpoint. Each call is bounded by timeout, or DefaultTimeout
// when timeout is not positive.
func (p *Prober) Probe(ctx context.Context, ep endpoint.Endpoint, timeout time.Duration) Result {
	if !ep.Eligible() {
		p.logger.Debug("endpoint not eligible for probing", slog.String("endpoint", ep.Name))
		return Unhealthy(ep.Name)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Warm-up: the error is ignored on purpose, only the timed call counts.
	if err := p.call(ctx, ep, timeout); err != nil {
		p.logger.Debug("warm-up call failed",
			slog.String("endpoint", ep.Name),
			slog.Any("err", err))
	}

	start := p.now()
	err := p.call(ctx, ep, timeout)
	elapsed := p.now().Sub(start)

	if err != nil {
		p.logger.Debug("probe failed",
			slog.String("endpoint", ep.Name),
			slog.Any("err", err))
		return Unhealthy(ep.Name)
	}

	p.logger.Debug("probe succeeded",
		slog.String("endpoint", ep.Name),
		slog.Duration("latency", elapsed))

	return Healthy(ep.Name, elapsed)
}

func (p *Prober) call(ctx context.Context, ep endpoint.Endpoint, timeout time.Duration) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return p.client.Ping(callCtx, ep)
}
