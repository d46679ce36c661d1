package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxLatencySamples = 1000

type Metrics struct {
	mutex        sync.RWMutex
	probes       map[string]int64
	failures     map[string]int64
	latencies    map[string][]time.Duration
	healthStatus map[string]bool
	switches     int64
	lastSwitch   time.Time
	active       string
	startTime    time.Time
}

type Snapshot struct {
	TotalProbes int64                      `json:"total_probes"`
	Switches    int64                      `json:"switches"`
	LastSwitch  *time.Time                 `json:"last_switch,omitempty"`
	Active      string                     `json:"active"`
	Uptime      time.Duration              `json:"uptime"`
	Endpoints   map[string]EndpointMetrics `json:"endpoints"`
}

type EndpointMetrics struct {
	Probes     int64         `json:"probes"`
	Failures   int64         `json:"failures"`
	Healthy    bool          `json:"healthy"`
	AvgLatency time.Duration `json:"avg_latency"`
	P50Latency time.Duration `json:"p50_latency"`
	P95Latency time.Duration `json:"p95_latency"`
	P99Latency time.Duration `json:"p99_latency"`
}

// RecordProbe counts a probe and, when healthy, keeps its latency sample.
func (m *Metrics) RecordProbe(endpoint string, latency time.Duration, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.probes[endpoint]++
	m.healthStatus[endpoint] = healthy

	if !healthy {
		m.failures[endpoint]++
		return
	}

	m.latencies[endpoint] = append(m.latencies[endpoint], latency)
	if len(m.latencies[endpoint]) > maxLatencySamples {
		m.latencies[endpoint] = m.latencies[endpoint][1:]
	}
}

func (m *Metrics) UpdateHealthStatus(endpoint string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[endpoint] = healthy
}

// RecordSwitch counts a failover and remembers the new active endpoint.
func (m *Metrics) RecordSwitch(from, to string, at time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.switches++
	m.lastSwitch = at
	m.active = to
	m.healthStatus[to] = true
	if from != "" {
		m.healthStatus[from] = false
	}
}

// SetActive records the active endpoint without counting a switch.
func (m *Metrics) SetActive(name string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.active = name
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Switches:  m.switches,
		Active:    m.active,
		Uptime:    time.Since(m.startTime),
		Endpoints: make(map[string]EndpointMetrics),
	}
	if !m.lastSwitch.IsZero() {
		last := m.lastSwitch
		snap.LastSwitch = &last
	}

	all := make(map[string]bool)
	for name := range m.probes {
		all[name] = true
	}
	for name := range m.healthStatus {
		all[name] = true
	}

	for name := range all {
		snap.TotalProbes += m.probes[name]

		em := EndpointMetrics{
			Probes:   m.probes[name],
			Failures: m.failures[name],
			Healthy:  m.healthStatus[name],
		}

		samples := m.latencies[name]
		if len(samples) > 0 {
			sorted := make([]time.Duration, len(samples))
			copy(sorted, samples)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			em.AvgLatency = average(sorted)
			em.P50Latency = percentile(sorted, 0.50)
			em.P95Latency = percentile(sorted, 0.95)
			em.P99Latency = percentile(sorted, 0.99)
		}

		snap.Endpoints[name] = em
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		probes:       make(map[string]int64),
		failures:     make(map[string]int64),
		latencies:    make(map[string][]time.Duration),
		healthStatus: make(map[string]bool),
		startTime:    time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
