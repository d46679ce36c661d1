// Package config loads apiswitch settings from defaults, an optional YAML
// file and APISWITCH_ environment variables. It covers file locations for the
// endpoint, health and active-endpoint stores, probe tuning, the watch
// interval and the metrics listener.
package config
