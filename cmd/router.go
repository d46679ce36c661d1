package main

import (
	"encoding/json"
	"net/http"

	"github.com/angeloszaimis/apiswitch/internal/circuitbreaker"
	"github.com/angeloszaimis/apiswitch/internal/health"
	"github.com/angeloszaimis/apiswitch/internal/metrics"
)

type statusEndpoint struct {
	Name    string         `json:"name"`
	BaseURL string         `json:"base_url"`
	Active  bool           `json:"active"`
	Health  *health.Record `json:"health,omitempty"`
	Circuit string         `json:"circuit,omitempty"`
}

type statusResponse struct {
	Active    string           `json:"active"`
	Endpoints []statusEndpoint `json:"endpoints"`
}

func setupRouter(metricsCollector *metrics.Collector, exporter *metrics.Exporter, svc *services) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /metrics", metricsCollector.Handler())
	mux.Handle("GET /metrics/prometheus", exporter.Handler())
	mux.HandleFunc("GET /status", statusHandler(svc))

	return mux
}

func statusHandler(svc *services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := svc.provider.Active(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		var circuits map[string]circuitbreaker.State
		if svc.breakers != nil {
			circuits = svc.breakers.States()
		}

		resp := statusResponse{Active: current, Endpoints: []statusEndpoint{}}
		for _, ep := range svc.store.Endpoints() {
			entry := statusEndpoint{Name: ep.Name, BaseURL: ep.BaseURL, Active: ep.Name == current}
			if rec, ok := svc.records.Get(ep.Name); ok {
				entry.Health = &rec
			}
			if state, ok := circuits[ep.Name]; ok {
				entry.Circuit = state.String()
			}
			resp.Endpoints = append(resp.Endpoints, entry)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
