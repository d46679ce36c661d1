// Package interactive implements the line-driven endpoint menu.
package interactive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/angeloszaimis/apiswitch/internal/active"
	"github.com/angeloszaimis/apiswitch/internal/endpoint"
	"github.com/angeloszaimis/apiswitch/internal/health"
	"github.com/angeloszaimis/apiswitch/internal/healthcheck"
	"github.com/angeloszaimis/apiswitch/internal/probe"
	"github.com/angeloszaimis/apiswitch/internal/report"
	"github.com/angeloszaimis/apiswitch/internal/scanner"
)

const prompt = "apiswitch> "

const helpText = `Commands:
  list, l           show endpoints with their last known health
  refresh, r        probe every endpoint, then list
  use, u <n|name>   activate an endpoint by number or name
  check, c          check the active endpoint and fail over if needed
  help, h           show this help
  quit, q           leave the menu
`

// Monitor is the part of healthcheck.Monitor the menu drives.
type Monitor interface {
	ScanAll(ctx context.Context, onProgress scanner.ProgressFunc) ([]probe.Result, error)
	Check(ctx context.Context, autoSwitch bool) (healthcheck.Decision, error)
	Records() health.Store
}

type Options struct {
	AutoSwitch bool
}

// Loop reads commands from in and writes results to out.
type Loop struct {
	in       *bufio.Scanner
	out      io.Writer
	store    *endpoint.Store
	monitor  Monitor
	provider active.Provider
	opts     Options
	logger   *slog.Logger
}

func New(in io.Reader, out io.Writer, store *endpoint.Store, monitor Monitor, provider active.Provider, opts Options, logger *slog.Logger) *Loop {
	return &Loop{
		in:       bufio.NewScanner(in),
		out:      out,
		store:    store,
		monitor:  monitor,
		provider: provider,
		opts:     opts,
		logger:   logger,
	}
}

// Run lists the endpoints, then executes commands until quit, end of input or
// ctx cancellation. Commands produced by other commands are queued and run
// before the next line is read.
func (l *Loop) Run(ctx context.Context) error {
	queue := []Command{{Kind: KindList}}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if len(queue) == 0 {
			fmt.Fprint(l.out, prompt)
			if !l.in.Scan() {
				fmt.Fprintln(l.out)
				return l.in.Err()
			}
			cmd := Parse(l.in.Text())
			if cmd.Raw == "" {
				continue
			}
			queue = append(queue, cmd)
		}

		cmd := queue[0]
		queue = queue[1:]

		next, done, err := l.dispatch(ctx, cmd)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(l.out, "error: %v\n", err)
			continue
		}
		if done {
			return nil
		}
		queue = append(queue, next...)
	}
}

func (l *Loop) dispatch(ctx context.Context, cmd Command) ([]Command, bool, error) {
	switch cmd.Kind {
	case KindList:
		return nil, false, l.list(ctx)

	case KindRefresh:
		if err := l.refresh(ctx); err != nil {
			return nil, false, err
		}
		return []Command{{Kind: KindList}}, false, nil

	case KindUse:
		return nil, false, l.use(ctx, cmd.Arg)

	case KindCheck:
		return nil, false, l.check(ctx)

	case KindHelp:
		fmt.Fprint(l.out, helpText)
		return nil, false, nil

	case KindQuit:
		return nil, true, nil

	default:
		fmt.Fprintf(l.out, "unknown command %q, type help for a list\n", cmd.Raw)
		return nil, false, nil
	}
}

func (l *Loop) list(ctx context.Context) error {
	current, err := l.provider.Active(ctx)
	if err != nil {
		return fmt.Errorf("resolve active endpoint: %w", err)
	}
	report.Endpoints(l.out, l.store.Endpoints(), l.monitor.Records(), current)
	return nil
}

func (l *Loop) refresh(ctx context.Context) error {
	results, err := l.monitor.ScanAll(ctx, func(completed, total int) {
		fmt.Fprintf(l.out, "\rprobing %d/%d", completed, total)
	})
	fmt.Fprintln(l.out)
	if err != nil {
		return err
	}

	healthy := 0
	for _, res := range results {
		if res.Healthy() {
			healthy++
		}
	}
	fmt.Fprintf(l.out, "%d of %d endpoints healthy\n", healthy, len(results))
	return nil
}

func (l *Loop) use(ctx context.Context, arg string) error {
	if arg == "" {
		return errors.New("usage: use <n|name>")
	}

	ep, err := l.resolve(arg)
	if err != nil {
		return err
	}
	if err := ep.Validate(); err != nil {
		return fmt.Errorf("cannot activate %s: %w", ep.Name, err)
	}

	if err := l.provider.Activate(ctx, ep); err != nil {
		return fmt.Errorf("activate %s: %w", ep.Name, err)
	}

	l.logger.Info("Activated endpoint", slog.String("endpoint", ep.Name))
	fmt.Fprintf(l.out, "active endpoint is now %s (%s)\n", ep.Name, ep.BaseURL)
	return nil
}

// resolve accepts a 1-based list position or a name. A name that is also a
// number wins over the position.
func (l *Loop) resolve(arg string) (endpoint.Endpoint, error) {
	if ep, err := l.store.Get(arg); err == nil {
		return ep, nil
	}

	n, err := strconv.Atoi(arg)
	if err != nil {
		return endpoint.Endpoint{}, fmt.Errorf("%w: %s", endpoint.ErrEndpointNotFound, arg)
	}

	endpoints := l.store.Endpoints()
	if n < 1 || n > len(endpoints) {
		return endpoint.Endpoint{}, fmt.Errorf("no endpoint at position %d, pick 1-%d", n, len(endpoints))
	}
	return endpoints[n-1], nil
}

func (l *Loop) check(ctx context.Context) error {
	decision, err := l.monitor.Check(ctx, l.opts.AutoSwitch)
	if err != nil {
		return err
	}

	switch decision.Outcome {
	case healthcheck.OutcomeNoActive:
		fmt.Fprintln(l.out, "no active endpoint, pick one with use")
	case healthcheck.OutcomeSwitched:
		fmt.Fprintf(l.out, "switched from %s to %s (%s)\n", decision.Previous, decision.Active, decision.Latency.Round(time.Millisecond))
	case healthcheck.OutcomeHealthy:
		fmt.Fprintf(l.out, "%s is healthy (%s)\n", decision.Active, decision.Latency.Round(time.Millisecond))
	default:
		fmt.Fprintf(l.out, "%s: %s\n", decision.Active, decision.Outcome)
	}
	return nil
}
