// Package healthcheck decides whether the active endpoint should be replaced.
//
// CheckAndSwitch probes only the active endpoint. When that probe fails and
// auto-switching is enabled it scans every endpoint and activates the fastest
// healthy alternative. The previous endpoint stays active, marked unhealthy,
// until a healthy replacement is found, so a scan that finds nothing never
// leaves the system without an active endpoint. Running it repeatedly against a healthy endpoint changes
// nothing.
package healthcheck
