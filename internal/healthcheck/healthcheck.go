package healthcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/angeloszaimis/apiswitch/internal/active"
	"github.com/angeloszaimis/apiswitch/internal/endpoint"
	"github.com/angeloszaimis/apiswitch/internal/health"
	"github.com/angeloszaimis/apiswitch/internal/metrics"
	"github.com/angeloszaimis/apiswitch/internal/probe"
	"github.com/angeloszaimis/apiswitch/internal/scanner"
	"github.com/angeloszaimis/apiswitch/internal/strategy"
)

// ErrNoEndpoints is returned by ScanAll when the store is empty.
var ErrNoEndpoints = errors.New("no endpoints configured")

// Prober probes a single endpoint.
type Prober interface {
	Probe(ctx context.Context, ep endpoint.Endpoint, timeout time.Duration) probe.Result
}

// Scanner probes many endpoints concurrently.
type Scanner interface {
	Scan(ctx context.Context, endpoints []endpoint.Endpoint, opts scanner.Options) map[string]probe.Result
}

// Config carries probe tuning.
type Config struct {
	Timeout     time.Duration
	Concurrency int
}

// Monitor owns HealthRecord storage and runs the failover decision.
type Monitor struct {
	store    *endpoint.Store
	prober   Prober
	scanner  Scanner
	strategy strategy.Strategy
	records  health.Store
	provider active.Provider
	cfg      Config
	logger   *slog.Logger
	events   *metrics.Collector
	now      func() time.Time
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithMetrics sends probe and switch events to collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(m *Monitor) {
		m.events = collector
	}
}

// WithStrategy replaces the lowest-latency selection.
func WithStrategy(s strategy.Strategy) Option {
	return func(m *Monitor) {
		m.strategy = s
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// NewMonitor wires a Monitor. The default strategy is lowest latency.
func NewMonitor(
	store *endpoint.Store,
	prober Prober,
	scan Scanner,
	records health.Store,
	provider active.Provider,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Monitor {
	m := &Monitor{
		store:    store,
		prober:   prober,
		scanner:  scan,
		strategy: strategy.NewLowestLatencyStrategy(),
		records:  records,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Check runs CheckAndSwitch against the provider's active endpoint.
func (m *Monitor) Check(ctx context.Context, autoSwitch bool) (Decision, error) {
	current, err := m.provider.Active(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("resolve active endpoint: %w", err)
	}
	return m.CheckAndSwitch(ctx, current, autoSwitch)
}

// CheckAndSwitch probes current and, if it is unhealthy and autoSwitch is set,
// fails over to the fastest healthy alternative.
func (m *Monitor) CheckAndSwitch(ctx context.Context, current string, autoSwitch bool) (Decision, error) {
	if current == "" {
		m.logger.Info("No active endpoint configured")
		return Decision{Outcome: OutcomeNoActive}, nil
	}

	ep, err := m.store.Get(current)
	if err != nil {
		return Decision{}, err
	}

	res := m.prober.Probe(ctx, ep, m.cfg.Timeout)
	m.observe(res)
	if err := m.record(res); err != nil {
		return Decision{}, err
	}

	if latency, ok := res.Latency(); ok {
		m.logger.Info("Active endpoint is healthy",
			slog.String("endpoint", current),
			slog.Duration("latency", latency))
		return Decision{Active: current, Outcome: OutcomeHealthy, Latency: latency}, nil
	}

	m.logger.Warn("Active endpoint is unhealthy", slog.String("endpoint", current))

	if !autoSwitch {
		return Decision{Active: current, Outcome: OutcomeUnhealthy}, nil
	}

	results := m.scanner.Scan(ctx, m.store.Endpoints(), scanner.Options{
		Timeout:     m.cfg.Timeout,
		Concurrency: m.cfg.Concurrency,
	})

	// Every scanned endpoint gets a fresh record, the failed active one included.
	// Its scan result only refreshes health; it is never a failover candidate.
	for _, r := range results {
		m.observe(r)
		if err := m.record(r); err != nil {
			return Decision{}, err
		}
	}

	selected, ok := m.strategy.Select(m.store.Names(), results, current)
	if !ok {
		m.logger.Warn("No healthy alternative found, keeping active endpoint",
			slog.String("endpoint", current))
		return Decision{Active: current, Outcome: OutcomeNoAlternative}, nil
	}

	target, err := m.store.Get(selected)
	if err != nil {
		return Decision{}, err
	}

	if err := m.provider.Activate(ctx, target); err != nil {
		return Decision{}, fmt.Errorf("activate %s: %w", selected, err)
	}

	latency, _ := results[selected].Latency()
	if err := m.record(results[selected]); err != nil {
		return Decision{}, err
	}

	m.emit(metrics.Event{
		Type:     metrics.EventSwitched,
		From:     current,
		Endpoint: selected,
		Latency:  latency,
		Healthy:  true,
	})

	m.logger.Info("Switched active endpoint",
		slog.String("from", current),
		slog.String("to", selected),
		slog.Duration("latency", latency))

	return Decision{
		Active:   selected,
		Previous: current,
		Switched: true,
		Outcome:  OutcomeSwitched,
		Latency:  latency,
	}, nil
}

// ScanAll probes every endpoint, persists every record and returns the
// results in declaration order.
func (m *Monitor) ScanAll(ctx context.Context, onProgress scanner.ProgressFunc) ([]probe.Result, error) {
	if m.store.Len() == 0 {
		return nil, ErrNoEndpoints
	}

	results := m.scanner.Scan(ctx, m.store.Endpoints(), scanner.Options{
		Timeout:     m.cfg.Timeout,
		Concurrency: m.cfg.Concurrency,
		OnProgress:  onProgress,
	})

	ordered := make([]probe.Result, 0, len(results))
	for _, name := range m.store.Names() {
		res, ok := results[name]
		if !ok {
			continue
		}
		m.observe(res)
		if err := m.record(res); err != nil {
			return nil, err
		}
		ordered = append(ordered, res)
	}

	return ordered, nil
}

// Watch runs Check every interval until ctx is done. Failed runs are logged
// and retried on the next tick.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration, autoSwitch bool, onDecision func(Decision)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		decision, err := m.Check(ctx, autoSwitch)
		if err != nil {
			m.logger.Error("Health check failed", slog.Any("err", err))
			return
		}
		if onDecision != nil {
			onDecision(decision)
		}
	}

	run()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Health monitor stopped")
			return

		case <-ticker.C:
			run()
		}
	}
}

// Records exposes the persisted health records.
func (m *Monitor) Records() health.Store {
	return m.records
}

func (m *Monitor) record(res probe.Result) error {
	name := res.Name()
	prev, seen := m.records.Get(name)
	rec := health.FromResult(res, m.now())

	if err := m.records.Put(name, rec); err != nil {
		return fmt.Errorf("persist health of %s: %w", name, err)
	}

	if seen && prev.Status != rec.Status {
		m.emit(metrics.Event{Type: metrics.EventHealthChanged, Endpoint: name, Healthy: res.Healthy()})
		if res.Healthy() {
			m.logger.Info("Endpoint is back up", slog.String("endpoint", name))
		} else {
			m.logger.Warn("Endpoint is down", slog.String("endpoint", name))
		}
	}
	return nil
}

func (m *Monitor) observe(res probe.Result) {
	latency, _ := res.Latency()
	m.emit(metrics.Event{
		Type:     metrics.EventProbeCompleted,
		Endpoint: res.Name(),
		Latency:  latency,
		Healthy:  res.Healthy(),
	})
}

func (m *Monitor) emit(event metrics.Event) {
	if m.events == nil {
		return
	}
	m.events.Emit(event)
}
