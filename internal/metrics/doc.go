// Package metrics aggregates probe and failover events into a snapshot that
// the watch command serves over HTTP.
//
// Events travel through a buffered channel consumed by one collector goroutine,
// so emitting never blocks a probe or a switch:
//
//	collector := metrics.NewCollector(256, logger)
//	collector.Start(ctx)
//
//	collector.EventChannel() <- metrics.Event{
//		Type:     metrics.EventProbeCompleted,
//		Endpoint: "relay-eu",
//		Latency:  180 * time.Millisecond,
//		Healthy:  true,
//	}
//
//	snapshot := collector.Snapshot()
//
// Remaining events are drained when the context ends.
package metrics
