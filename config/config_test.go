package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/apiswitch/config"
)

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	writeConfig := func(content string) string {
		path := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	Describe("Load", func() {
		Context("with valid config file", func() {
			var path string

			BeforeEach(func() {
				path = writeConfig(`
environment: "staging"

logging:
  level: "debug"

store:
  path: "/etc/apiswitch/endpoints.json"

probe:
  timeout: "2s"
  concurrency: 4

monitor:
  interval: "30s"
  auto_switch: false

metrics:
  address: "127.0.0.1:9191"
`)
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Environment).To(Equal(config.EnvStaging))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelDebug))
				Expect(cfg.Store.Path).To(Equal("/etc/apiswitch/endpoints.json"))
				Expect(cfg.Probe.Concurrency).To(Equal(4))
				Expect(cfg.Monitor.AutoSwitch).To(BeFalse())
				Expect(cfg.Metrics.Address).To(Equal("127.0.0.1:9191"))
			})

			It("should parse durations", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.ProbeTimeout()).To(Equal(2 * time.Second))
				Expect(cfg.MonitorInterval()).To(Equal(30 * time.Second))
			})

			It("should keep defaults for keys the file omits", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Store.HealthPath).To(Equal("health_status.json"))
				Expect(cfg.Store.StatePath).To(Equal(".active_endpoint"))
				Expect(cfg.Metrics.Buffer).To(Equal(256))
			})

			It("should let environment variables override the file", func() {
				GinkgoT().Setenv("APISWITCH_PROBE_TIMEOUT", "750ms")
				GinkgoT().Setenv("APISWITCH_MONITOR_AUTO_SWITCH", "true")

				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.ProbeTimeout()).To(Equal(750 * time.Millisecond))
				Expect(cfg.Monitor.AutoSwitch).To(BeTrue())
			})
		})

		Context("without a config file", func() {
			BeforeEach(func() {
				wd, err := os.Getwd()
				Expect(err).NotTo(HaveOccurred())
				Expect(os.Chdir(tempDir)).To(Succeed())
				DeferCleanup(os.Chdir, wd)
			})

			It("should use defaults", func() {
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Environment).To(Equal(config.EnvDev))
				Expect(cfg.Store.Path).To(Equal("model_config.json"))
				Expect(cfg.ProbeTimeout()).To(Equal(5 * time.Second))
				Expect(cfg.Probe.Concurrency).To(Equal(10))
				Expect(cfg.MonitorInterval()).To(Equal(time.Minute))
				Expect(cfg.Monitor.BreakerThreshold).To(Equal(3))
				Expect(cfg.BreakerCooldown()).To(Equal(5 * time.Minute))
				Expect(cfg.Monitor.AutoSwitch).To(BeTrue())
				Expect(cfg.Metrics.Address).To(Equal(":9090"))
			})

			It("should fail when an explicit file is missing", func() {
				_, err := config.Load(filepath.Join(tempDir, "absent.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})

		DescribeTable("rejects invalid values",
			func(content string) {
				_, err := config.Load(writeConfig(content))
				Expect(err).To(MatchError(ContainSubstring("invalid configuration")))
			},
			Entry("unknown environment", `environment: "qa"`),
			Entry("unknown log level", "logging:\n  level: \"trace\""),
			Entry("unparseable timeout", "probe:\n  timeout: \"soon\""),
			Entry("zero interval", "monitor:\n  interval: \"0s\""),
			Entry("concurrency below one", "probe:\n  concurrency: -1"),
			Entry("negative breaker threshold", "monitor:\n  breaker_threshold: -2"),
			Entry("bad metrics address", "metrics:\n  address: \"nowhere\""),
		)
	})
})
