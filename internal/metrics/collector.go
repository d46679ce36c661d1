package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventProbeCompleted EventType = "probe_completed"
	EventHealthChanged  EventType = "health_changed"
	EventSwitched       EventType = "endpoint_switched"
)

// Event is one observation. From is set only for EventSwitched.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Endpoint  string
	From      string
	Latency   time.Duration
	Healthy   bool
}

type Collector struct {
	eventCh  chan Event
	metrics  *Metrics
	exporter *Exporter
	logger   *slog.Logger
	done     chan struct{}
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Export mirrors every processed event into e. Call it before Start.
func (c *Collector) Export(e *Exporter) {
	c.exporter = e
}

func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

// Emit queues an event, dropping it when the buffer is full.
func (c *Collector) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("metrics buffer full, dropping event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done is closed once the collector has drained and stopped.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")
	defer close(c.done)

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventProbeCompleted:
		c.metrics.RecordProbe(event.Endpoint, event.Latency, event.Healthy)

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Endpoint, event.Healthy)

	case EventSwitched:
		c.metrics.RecordSwitch(event.From, event.Endpoint, event.Timestamp)
	}

	if c.exporter != nil {
		c.exporter.observe(event)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

// SetActive records the active endpoint without counting a switch.
func (c *Collector) SetActive(name string) {
	c.metrics.SetActive(name)
	if c.exporter != nil {
		c.exporter.setActive(name)
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
