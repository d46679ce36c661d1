// Package report renders endpoint listings and scan results as terminal tables.
package report

import (
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
	"github.com/angeloszaimis/apiswitch/internal/health"
	"github.com/angeloszaimis/apiswitch/internal/probe"
)

// ActiveMarker flags the active endpoint in the first column.
const ActiveMarker = "*"

// Records is the read side of health.Store.
type Records interface {
	Get(name string) (health.Record, bool)
}

// Endpoints writes one row per endpoint in declaration order, numbered from 1.
func Endpoints(w io.Writer, endpoints []endpoint.Endpoint, records Records, active string) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "", "Name", "Base URL", "Status", "Latency", "Last Check"})

	for i, ep := range endpoints {
		marker := ""
		if ep.Name == active {
			marker = ActiveMarker
		}

		status, latency, checked := string(health.StatusUnknown), "-", "-"
		if rec, ok := records.Get(ep.Name); ok {
			status = string(rec.Status)
			if d, ok := rec.LatencyValue(); ok {
				latency = formatLatency(d)
			}
			if !rec.LastCheck.IsZero() {
				checked = rec.LastCheck.Local().Format(time.DateTime)
			}
		}

		t.AppendRow(table.Row{i + 1, marker, ep.Name, ep.BaseURL, status, latency, checked})
	}

	t.Render()
}

// Scan writes results fastest first; unhealthy endpoints follow in the order given.
func Scan(w io.Writer, results []probe.Result) {
	sorted := SortByLatency(results)

	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Status", "Latency"})
	for _, res := range sorted {
		latency := "-"
		if d, ok := res.Latency(); ok {
			latency = formatLatency(d)
		}
		t.AppendRow(table.Row{res.Name(), res.Outcome().String(), latency})
	}

	healthy := 0
	for _, res := range sorted {
		if res.Healthy() {
			healthy++
		}
	}
	t.AppendFooter(table.Row{"", "healthy", healthy})

	t.Render()
}

// SortByLatency returns a copy of results ordered by ascending latency. The
// sort is stable so equal latencies keep their input order.
func SortByLatency(results []probe.Result) []probe.Result {
	sorted := make([]probe.Result, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		li, iok := sorted[i].Latency()
		lj, jok := sorted[j].Latency()
		if iok != jok {
			return iok
		}
		return iok && li < lj
	})
	return sorted
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func formatLatency(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
