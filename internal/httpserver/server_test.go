package httpserver_test

import (
	"context"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/apiswitch/internal/httpserver"
	"github.com/angeloszaimis/apiswitch/pkg/logger"
)

var _ = Describe("HTTP Server", func() {
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	Context("server creation", func() {
		DescribeTable("accepts valid addresses",
			func(addr string) {
				srv, err := httpserver.New(addr, noop, logger.Discard())
				Expect(err).NotTo(HaveOccurred())
				Expect(srv.Addr()).To(Equal(addr))
			},
			Entry("hostname", "localhost:9090"),
			Entry("ip", "127.0.0.1:9090"),
			Entry("port only", ":9090"),
			Entry("ephemeral port", "127.0.0.1:0"),
		)

		DescribeTable("rejects invalid addresses",
			func(addr string) {
				srv, err := httpserver.New(addr, noop, logger.Discard())
				Expect(err).To(HaveOccurred())
				Expect(srv).To(BeNil())
			},
			Entry("empty", ""),
			Entry("too many colons", "invalid:host:port"),
			Entry("missing port", "localhost"),
			Entry("non-numeric port", "localhost:http"),
			Entry("bad host", "bad_host!:9090"),
		)
	})

	Context("server lifecycle", func() {
		It("serves requests until the context is cancelled", func() {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})

			srv, err := httpserver.New("127.0.0.1:0", handler, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			Expect(srv.Listen()).To(Succeed())

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- srv.Serve(ctx) }()

			resp, err := http.Get("http://" + srv.Addr())
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("ok"))

			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})

		It("fails when the address is already bound", func() {
			first, err := httpserver.New("127.0.0.1:0", noop, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Listen()).To(Succeed())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = first.Serve(ctx) }()

			second, err := httpserver.New(first.Addr(), noop, logger.Discard())
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Serve(ctx)).To(HaveOccurred())
		})
	})
})
