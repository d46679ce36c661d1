// Package endpoint holds the endpoint data model and the ordered JSON store
// that maps endpoint names to their base URL and secret. Declaration order
// is preserved because failover breaks latency ties by it.
package endpoint
