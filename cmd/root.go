package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/apiswitch/config"
	"github.com/angeloszaimis/apiswitch/internal/active"
	"github.com/angeloszaimis/apiswitch/internal/circuitbreaker"
	"github.com/angeloszaimis/apiswitch/internal/endpoint"
	"github.com/angeloszaimis/apiswitch/internal/health"
	"github.com/angeloszaimis/apiswitch/internal/healthcheck"
	"github.com/angeloszaimis/apiswitch/internal/probe"
	"github.com/angeloszaimis/apiswitch/internal/scanner"
	"github.com/angeloszaimis/apiswitch/internal/vault"
	"github.com/angeloszaimis/apiswitch/pkg/logger"
)

// EnvVaultPassword supplies the vault password when --password is not given.
const EnvVaultPassword = "APISWITCH_VAULT_PASSWORD"

var version = "dev"

// app carries state shared by every subcommand. cfg and logger are populated
// in PersistentPreRunE.
type app struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	configFile string
	password   string

	cfg    *config.Config
	logger *slog.Logger

	httpClient *http.Client

	// breakers guards probes when set; only watch sets it.
	breakers *circuitbreaker.Registry
}

// services is the wired object graph for commands that touch endpoints.
type services struct {
	store    *endpoint.Store
	records  health.Store
	provider active.Provider
	monitor  *healthcheck.Monitor
	breakers *circuitbreaker.Registry
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{
		in:         bufio.NewReader(in),
		out:        out,
		errOut:     errOut,
		httpClient: &http.Client{},
	}

	root := &cobra.Command{
		Use:               "apiswitch <command> [args]",
		Short:             "Switch between Anthropic-compatible API endpoints and fail over when one goes down",
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           version,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(a.in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.password, "password", "", "vault password (default $"+EnvVaultPassword+", then stdin)")

	root.AddCommand(
		a.newListCmd(),
		a.newAddCmd(),
		a.newRemoveCmd(),
		a.newUseCmd(),
		a.newScanCmd(),
		a.newCheckCmd(),
		a.newWatchCmd(),
		a.newHealthCmd(),
		a.newVaultCmd(),
		a.newMenuCmd(),
	)

	return root
}

func (a *app) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger.New(cfg.Logging.Level, false, cfg.Environment, a.errOut)
	return nil
}

// loadStore reads the endpoint store, decrypting it first when only the
// encrypted form exists.
func (a *app) loadStore() (*endpoint.Store, error) {
	path := a.cfg.Store.Path

	if !vault.IsEncrypted(path) {
		return endpoint.Load(path)
	}

	password, err := a.vaultPassword()
	if err != nil {
		return nil, err
	}

	data, err := vault.ForStore(path).DecryptFile(path, password)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Decrypted endpoint store", slog.String("path", vault.EncryptedPath(path)))
	return endpoint.Parse(data)
}

// saveStore writes the store back in the form it was loaded from.
func (a *app) saveStore(store *endpoint.Store) error {
	path := a.cfg.Store.Path

	if !vault.IsEncrypted(path) {
		return store.Save(path)
	}

	data, err := store.Marshal()
	if err != nil {
		return err
	}

	password, err := a.vaultPassword()
	if err != nil {
		return err
	}

	blob, err := vault.ForStore(path).Encrypt(data, password)
	if err != nil {
		return err
	}
	return vault.WriteBlob(vault.EncryptedPath(path), blob)
}

func (a *app) vaultPassword() (string, error) {
	if a.password != "" {
		return a.password, nil
	}
	if pw := os.Getenv(EnvVaultPassword); pw != "" {
		a.password = pw
		return pw, nil
	}

	fmt.Fprint(a.errOut, "Vault password: ")
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}

	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("vault password is required")
	}
	a.password = pw
	return pw, nil
}

func (a *app) services(opts ...healthcheck.Option) (*services, error) {
	store, err := a.loadStore()
	if err != nil {
		return nil, err
	}

	records, err := health.NewFileStore(a.cfg.Store.HealthPath)
	if err != nil {
		return nil, err
	}

	provider := active.NewEnvProvider(a.cfg.Store.StatePath, store)

	var prober healthcheck.Prober = probe.NewProber(probe.NewAnthropicClient(a.httpClient, a.cfg.Probe.Model, a.logger), a.logger)
	if a.breakers != nil {
		prober = circuitbreaker.NewProber(prober, a.breakers, a.logger)
	}

	monitor := healthcheck.NewMonitor(
		store,
		prober,
		scanner.New(prober, a.logger),
		records,
		provider,
		healthcheck.Config{
			Timeout:     a.cfg.ProbeTimeout(),
			Concurrency: a.cfg.Probe.Concurrency,
		},
		a.logger,
		opts...,
	)

	return &services{
		store:    store,
		records:  records,
		provider: provider,
		monitor:  monitor,
		breakers: a.breakers,
	}, nil
}
