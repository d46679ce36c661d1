package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/apiswitch/internal/circuitbreaker"
	"github.com/angeloszaimis/apiswitch/internal/healthcheck"
	"github.com/angeloszaimis/apiswitch/internal/httpserver"
	"github.com/angeloszaimis/apiswitch/internal/interactive"
	"github.com/angeloszaimis/apiswitch/internal/metrics"
	"github.com/angeloszaimis/apiswitch/internal/report"
)

func (a *app) newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Probe every endpoint and rank them by latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services()
			if err != nil {
				return err
			}

			results, err := svc.monitor.ScanAll(cmd.Context(), func(completed, total int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\rprobing %d/%d", completed, total)
			})
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			report.Scan(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

func (a *app) newCheckCmd() *cobra.Command {
	var autoSwitch bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the active endpoint once and fail over if it is down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("auto-switch") {
				autoSwitch = a.cfg.Monitor.AutoSwitch
			}

			svc, err := a.services()
			if err != nil {
				return err
			}

			decision, err := svc.monitor.Check(cmd.Context(), autoSwitch)
			if err != nil {
				return err
			}

			writeDecision(cmd, decision)
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoSwitch, "auto-switch", false, "switch to the fastest healthy endpoint when the active one is down (default from monitor.auto_switch)")
	return cmd
}

func writeDecision(cmd *cobra.Command, d healthcheck.Decision) {
	out := cmd.OutOrStdout()

	switch d.Outcome {
	case healthcheck.OutcomeNoActive:
		fmt.Fprintln(out, "No active endpoint. Pick one with 'apiswitch use <name>'.")
	case healthcheck.OutcomeHealthy:
		fmt.Fprintf(out, "✓ %s is healthy (%s)\n", d.Active, d.Latency.Round(time.Millisecond))
	case healthcheck.OutcomeSwitched:
		fmt.Fprintf(out, "✓ Switched from %s to %s (%s)\n", d.Previous, d.Active, d.Latency.Round(time.Millisecond))
	case healthcheck.OutcomeUnhealthy:
		fmt.Fprintf(out, "✗ %s is unhealthy; auto-switch is off\n", d.Active)
	case healthcheck.OutcomeNoAlternative:
		fmt.Fprintf(out, "✗ %s is unhealthy and no alternative is healthy; keeping it\n", d.Active)
	}
}

func (a *app) newWatchCmd() *cobra.Command {
	var (
		interval   time.Duration
		autoSwitch bool
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check the active endpoint periodically and serve /metrics, /metrics/prometheus and /status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if !flags.Changed("interval") {
				interval = a.cfg.MonitorInterval()
			}
			if !flags.Changed("auto-switch") {
				autoSwitch = a.cfg.Monitor.AutoSwitch
			}
			if !flags.Changed("addr") {
				addr = a.cfg.Metrics.Address
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}

			exporter := metrics.NewExporter()
			collector := metrics.NewCollector(a.cfg.Metrics.Buffer, a.logger)
			collector.Export(exporter)
			if a.cfg.Monitor.BreakerThreshold > 0 {
				a.breakers = circuitbreaker.NewRegistry(a.cfg.Monitor.BreakerThreshold, a.cfg.BreakerCooldown())
			}

			svc, err := a.services(healthcheck.WithMetrics(collector))
			if err != nil {
				return err
			}

			srv, err := httpserver.New(addr, setupRouter(collector, exporter, svc), a.logger)
			if err != nil {
				return err
			}

			if current, err := svc.provider.Active(cmd.Context()); err == nil {
				collector.SetActive(current)
			}

			g, gctx := errgroup.WithContext(cmd.Context())
			collector.Start(gctx)

			a.logger.Info("Watching active endpoint",
				slog.Duration("interval", interval),
				slog.Bool("auto_switch", autoSwitch),
				slog.String("addr", addr))

			g.Go(func() error {
				return srv.Serve(gctx)
			})
			g.Go(func() error {
				svc.monitor.Watch(gctx, interval, autoSwitch, func(d healthcheck.Decision) {
					if d.Switched {
						writeDecision(cmd, d)
					}
				})
				return nil
			})

			err = g.Wait()
			<-collector.Done()
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "time between checks (default from monitor.interval)")
	cmd.Flags().BoolVar(&autoSwitch, "auto-switch", true, "fail over when the active endpoint is down (default from monitor.auto_switch)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address for /metrics and /status (default from metrics.address)")
	return cmd
}

func (a *app) newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Manage recorded endpoint health",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget every recorded health status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services()
			if err != nil {
				return err
			}

			if err := svc.records.Reset(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Health records cleared")
			return nil
		},
	})

	return cmd
}

func (a *app) newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Browse, probe and switch endpoints interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services()
			if err != nil {
				return err
			}

			loop := interactive.New(
				a.in,
				cmd.OutOrStdout(),
				svc.store,
				svc.monitor,
				svc.provider,
				interactive.Options{AutoSwitch: a.cfg.Monitor.AutoSwitch},
				a.logger,
			)
			return loop.Run(cmd.Context())
		},
	}
}
