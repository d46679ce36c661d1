package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
	"github.com/angeloszaimis/apiswitch/internal/probe"
)

// DefaultConcurrency is the worker pool size used when none is configured.
const DefaultConcurrency = 10

// Prober is the single-endpoint probe the scanner fans out.
type Prober interface {
	Probe(ctx context.Context, ep endpoint.Endpoint, timeout time.Duration) probe.Result
}

// ProgressFunc observes scan progress. It is called from the collecting
// goroutine only, once per finished probe.
type ProgressFunc func(completed, total int)

// Options tunes a single scan.
type Options struct {
	Timeout     time.Duration
	Concurrency int
	OnProgress  ProgressFunc
}

type Scanner struct {
	prober Prober
	logger *slog.Logger
}

func New(prober Prober, logger *slog.Logger) *Scanner {
	return &Scanner{
		prober: prober,
		logger: logger,
	}
}

// Scan probes every endpoint and returns one result per distinct name.
// Duplicate names are probed once, using the first declaration.
func (s *Scanner) Scan(ctx context.Context, endpoints []endpoint.Endpoint, opts Options) map[string]probe.Result {
	targets := dedupe(endpoints)
	results := make(map[string]probe.Result, len(targets))
	if len(targets) == 0 {
		return results
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	resultCh := make(chan probe.Result, len(targets))

	go func() {
		var g errgroup.Group
		g.SetLimit(limit)

		for _, ep := range targets {
			g.Go(func() error {
				resultCh <- s.probeContained(ctx, ep, opts.Timeout)
				return nil
			})
		}

		_ = g.Wait()
		close(resultCh)
	}()

	completed := 0
	for res := range resultCh {
		results[res.Name()] = res
		completed++

		if opts.OnProgress != nil {
			opts.OnProgress(completed, len(targets))
		}
	}

	s.logger.Debug("scan finished",
		slog.Int("endpoints", len(targets)),
		slog.Int("healthy", countHealthy(results)))

	return results
}

// probeContained turns a panic inside a probe into an unhealthy result.
func (s *Scanner) probeContained(ctx context.Context, ep endpoint.Endpoint, timeout time.Duration) (res probe.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("probe panicked",
				slog.String("endpoint", ep.Name),
				slog.String("panic", fmt.Sprint(r)))
			res = probe.Unhealthy(ep.Name)
		}
	}()

	res = s.prober.Probe(ctx, ep, timeout)
	if res.Name() != ep.Name {
		// Keep the map keyed by what was submitted, whatever the prober returned.
		if latency, ok := res.Latency(); ok {
			return probe.Healthy(ep.Name, latency)
		}
		return probe.Unhealthy(ep.Name)
	}
	return res
}

func dedupe(endpoints []endpoint.Endpoint) []endpoint.Endpoint {
	seen := make(map[string]struct{}, len(endpoints))
	out := make([]endpoint.Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if _, ok := seen[ep.Name]; ok {
			continue
		}
		seen[ep.Name] = struct{}{}
		out = append(out, ep)
	}
	return out
}

func countHealthy(results map[string]probe.Result) int {
	n := 0
	for _, res := range results {
		if res.Healthy() {
			n++
		}
	}
	return n
}
