// Package circuitbreaker stops probing endpoints that keep failing.
//
// Each endpoint gets a breaker with three states:
//
//   - closed: probes run normally
//   - open: probes are skipped and the endpoint reads as unhealthy
//   - half-open: after the cooldown a single trial probe decides
//
// Wrap a prober to use it:
//
//	registry := circuitbreaker.NewRegistry(3, 5*time.Minute)
//	guarded := circuitbreaker.NewProber(prober, registry, logger)
//	res := guarded.Probe(ctx, ep, timeout)
package circuitbreaker
