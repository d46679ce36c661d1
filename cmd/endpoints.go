package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/apiswitch/internal/active"
	"github.com/angeloszaimis/apiswitch/internal/endpoint"
	"github.com/angeloszaimis/apiswitch/internal/report"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List endpoints with their last known health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.services()
			if err != nil {
				return err
			}

			current, err := svc.provider.Active(cmd.Context())
			if err != nil {
				return err
			}

			report.Endpoints(cmd.OutOrStdout(), svc.store.Endpoints(), svc.records, current)
			return nil
		},
	}
}

func (a *app) newAddCmd() *cobra.Command {
	var baseURL, secret string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an endpoint or update an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.loadStore()
			if err != nil {
				return err
			}

			ep := endpoint.Endpoint{Name: args[0], BaseURL: baseURL, Secret: secret}
			if err := ep.Validate(); err != nil {
				return fmt.Errorf("invalid endpoint %s: %w", ep.Name, err)
			}

			_, getErr := store.Get(ep.Name)
			if err := store.Put(ep); err != nil {
				return err
			}
			if err := a.saveStore(store); err != nil {
				return err
			}

			verb := "Added"
			if getErr == nil {
				verb = "Updated"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s endpoint %s (%s, key %s)\n", verb, ep.Name, ep.BaseURL, ep.Redacted())
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "endpoint base URL")
	cmd.Flags().StringVar(&secret, "secret", "", "API key or auth token")
	_ = cmd.MarkFlagRequired("base-url")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}

func (a *app) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove an endpoint",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services()
			if err != nil {
				return err
			}

			current, err := svc.provider.Active(cmd.Context())
			if err != nil {
				return err
			}
			if current == args[0] {
				return fmt.Errorf("%s is the active endpoint; switch to another one first", current)
			}

			if err := svc.store.Remove(args[0]); err != nil {
				return err
			}
			if err := a.saveStore(svc.store); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed endpoint %s\n", args[0])
			return nil
		},
	}
}

func (a *app) newUseCmd() *cobra.Command {
	var export bool

	cmd := &cobra.Command{
		Use:   "use <name>",
		Short: "Make an endpoint the active one",
		Long: `Make an endpoint the active one.

The choice is remembered for later runs. With --export the command prints
shell assignments instead, so the current shell can pick them up:

  eval "$(apiswitch use fast-proxy --export)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.services()
			if err != nil {
				return err
			}

			ep, err := svc.store.Get(args[0])
			if err != nil {
				return err
			}
			if err := ep.Validate(); err != nil {
				return fmt.Errorf("cannot activate %s: %w", ep.Name, err)
			}

			if err := svc.provider.Activate(cmd.Context(), ep); err != nil {
				return err
			}

			if export {
				writeExports(cmd, ep)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Active endpoint is now %s (%s, key %s)\n", ep.Name, ep.BaseURL, ep.Redacted())
			return nil
		},
	}

	cmd.Flags().BoolVar(&export, "export", false, "print export statements for the shell")
	return cmd
}

func writeExports(cmd *cobra.Command, ep endpoint.Endpoint) {
	fmt.Fprintf(cmd.OutOrStdout(), "export %s=%q\n", active.EnvBaseURL, ep.BaseURL)
	fmt.Fprintf(cmd.OutOrStdout(), "export %s=%q\n", active.EnvAuthToken, ep.Secret)
}
