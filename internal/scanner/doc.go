// Package scanner fans probes out over a bounded worker pool and gathers the
// results into one map keyed by endpoint name. Results are collected in the
// order probes finish; a fault inside one probe is recorded as unhealthy and
// never stops the others.
package scanner
