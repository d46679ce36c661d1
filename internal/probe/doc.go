// Package probe measures reachability and latency of a single endpoint.
//
// A probe makes two calls in sequence. The first is a warm-up whose outcome is
// deliberately discarded; it opens (or reuses) the underlying connection so the
// second, timed call is not charged for DNS, TCP and TLS setup. Only the timed
// call decides the result.
//
// Probes never fail: every transport problem is folded into an Unhealthy result.
package probe
