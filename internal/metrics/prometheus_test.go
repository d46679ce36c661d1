package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/apiswitch/internal/metrics"
	"github.com/angeloszaimis/apiswitch/pkg/logger"
)

var _ = Describe("Exporter", func() {
	scrape := func(e *metrics.Exporter) string {
		rec := httptest.NewRecorder()
		e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		return rec.Body.String()
	}

	It("should mirror collector events", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		exporter := metrics.NewExporter()
		collector := metrics.NewCollector(16, logger.Discard())
		collector.Export(exporter)
		collector.SetActive("a")
		collector.Start(ctx)

		collector.Emit(metrics.Event{Type: metrics.EventProbeCompleted, Endpoint: "a", Healthy: false})
		collector.Emit(metrics.Event{Type: metrics.EventProbeCompleted, Endpoint: "b", Healthy: true, Latency: 90 * time.Millisecond})
		collector.Emit(metrics.Event{Type: metrics.EventSwitched, From: "a", Endpoint: "b"})

		Eventually(func() string { return scrape(exporter) }).Should(ContainSubstring("apiswitch_switches_total 1"))

		body := scrape(exporter)
		Expect(body).To(ContainSubstring(`apiswitch_probe_total{endpoint="a",result="unhealthy"} 1`))
		Expect(body).To(ContainSubstring(`apiswitch_probe_total{endpoint="b",result="healthy"} 1`))
		Expect(body).To(ContainSubstring(`apiswitch_endpoint_healthy{endpoint="b"} 1`))
		Expect(body).To(ContainSubstring(`apiswitch_active_endpoint{endpoint="b"} 1`))
		Expect(body).NotTo(ContainSubstring(`apiswitch_active_endpoint{endpoint="a"}`))
		Expect(body).To(ContainSubstring(`apiswitch_probe_latency_seconds_count{endpoint="b"} 1`))
	})
})
