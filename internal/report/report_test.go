package report_test

import (
	"bytes"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/apiswitch/internal/endpoint"
	"github.com/angeloszaimis/apiswitch/internal/health"
	"github.com/angeloszaimis/apiswitch/internal/probe"
	"github.com/angeloszaimis/apiswitch/internal/report"
)

var _ = Describe("Report", func() {
	Describe("SortByLatency", func() {
		It("should order healthy results by latency and keep unhealthy ones last", func() {
			in := []probe.Result{
				probe.Unhealthy("down-1"),
				probe.Healthy("slow", 300*time.Millisecond),
				probe.Healthy("fast", 100*time.Millisecond),
				probe.Unhealthy("down-2"),
				probe.Healthy("fast-too", 100*time.Millisecond),
			}

			names := make([]string, 0, len(in))
			for _, res := range report.SortByLatency(in) {
				names = append(names, res.Name())
			}
			Expect(names).To(Equal([]string{"fast", "fast-too", "slow", "down-1", "down-2"}))
			Expect(in[0].Name()).To(Equal("down-1"))
		})
	})

	Describe("Endpoints", func() {
		It("should mark the active endpoint and show recorded health", func() {
			records := health.NewMemoryStore()
			Expect(records.Put("b", health.FromResult(probe.Healthy("b", 250*time.Millisecond), time.Now()))).To(Succeed())

			var buf bytes.Buffer
			report.Endpoints(&buf, []endpoint.Endpoint{
				{Name: "a", BaseURL: "https://a.example.com"},
				{Name: "b", BaseURL: "https://b.example.com"},
			}, records, "b")

			lines := strings.Split(buf.String(), "\n")
			var rowA, rowB string
			for _, line := range lines {
				switch {
				case strings.Contains(line, "a.example.com"):
					rowA = line
				case strings.Contains(line, "b.example.com"):
					rowB = line
				}
			}
			Expect(rowA).To(ContainSubstring("unknown"))
			Expect(rowA).NotTo(ContainSubstring(report.ActiveMarker))
			Expect(rowB).To(ContainSubstring(report.ActiveMarker))
			Expect(rowB).To(ContainSubstring("healthy"))
			Expect(rowB).To(ContainSubstring("250ms"))
		})
	})

	Describe("Scan", func() {
		It("should list the fastest endpoint first", func() {
			var buf bytes.Buffer
			report.Scan(&buf, []probe.Result{
				probe.Healthy("slow", time.Second),
				probe.Healthy("quick", 20*time.Millisecond),
			})

			out := buf.String()
			Expect(strings.Index(out, "quick")).To(BeNumerically("<", strings.Index(out, "slow")))
			Expect(out).To(ContainSubstring("20ms"))
		})
	})
})
