package metrics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/apiswitch/internal/metrics"
	"github.com/angeloszaimis/apiswitch/pkg/logger"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, logger.Discard())
	})

	AfterEach(func() {
		cancel()
	})

	It("should process probe events", func() {
		collector.Start(ctx)

		collector.EventChannel() <- metrics.Event{
			Type:     metrics.EventProbeCompleted,
			Endpoint: "a",
			Latency:  120 * time.Millisecond,
			Healthy:  true,
		}

		Eventually(func() int64 {
			return collector.Snapshot().Endpoints["a"].Probes
		}).Should(Equal(int64(1)))
		Expect(collector.Snapshot().Endpoints["a"].AvgLatency).To(Equal(120 * time.Millisecond))
	})

	It("should process health changes", func() {
		collector.Start(ctx)
		collector.Emit(metrics.Event{Type: metrics.EventHealthChanged, Endpoint: "a", Healthy: true})

		Eventually(func() bool {
			return collector.Snapshot().Endpoints["a"].Healthy
		}).Should(BeTrue())
	})

	It("should process switches", func() {
		collector.Start(ctx)
		collector.Emit(metrics.Event{Type: metrics.EventSwitched, From: "a", Endpoint: "b"})

		Eventually(func() string {
			return collector.Snapshot().Active
		}).Should(Equal("b"))
		Expect(collector.Snapshot().Switches).To(Equal(int64(1)))
	})

	It("should drain queued events on shutdown", func() {
		for range 5 {
			collector.Emit(metrics.Event{Type: metrics.EventProbeCompleted, Endpoint: "a", Healthy: false})
		}

		collector.Start(ctx)
		cancel()
		Eventually(collector.Done()).Should(BeClosed())

		Expect(collector.Snapshot().Endpoints["a"].Failures).To(Equal(int64(5)))
	})

	It("should drop events instead of blocking when full", func() {
		small := metrics.NewCollector(1, logger.Discard())
		small.Emit(metrics.Event{Type: metrics.EventProbeCompleted, Endpoint: "a"})

		done := make(chan struct{})
		go func() {
			small.Emit(metrics.Event{Type: metrics.EventProbeCompleted, Endpoint: "a"})
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})

	It("should serve the snapshot as JSON", func() {
		collector.SetActive("a")

		rec := httptest.NewRecorder()
		collector.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

		var snap map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
		Expect(snap["active"]).To(Equal("a"))
	})
})
