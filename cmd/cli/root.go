package main

import (
	"encoding/json"
	"fmt"

	"github.com/nimasrn/billing-console/internal/config"
	gateway "github.com/nimasrn/billing-console/internal/gateways"
	"github.com/nimasrn/billing-console/internal/services"
	"github.com/spf13/cobra"
)

// app is built once the root flags are parsed and shared by every command.
type app struct {
	envPath string
	apiKey  string
	client  *gateway.Client
	console *services.ConsoleService
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "cli",
		Short:         "Billing console operator CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.client != nil {
				_ = a.client.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envPath, "env", "", "path to a .env file")
	root.PersistentFlags().StringVar(&a.apiKey, "api-key", "", "billing API key of the operator")

	root.AddCommand(
		a.subscriptionsCmd(),
		a.customersCmd(),
		a.customerCmd(),
		a.paymentsCmd(),
		a.setValueCmd(),
		a.setSubscriptionDueCmd(),
		a.setPaymentDueCmd(),
		a.remindCmd(),
		a.debitCmd(),
	)
	return root
}

func (a *app) setup() error {
	if a.apiKey == "" {
		return fmt.Errorf("--api-key is required")
	}
	if err := config.Load(a.envPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := config.Get()

	client, err := gateway.NewClient(&gateway.Config{
		BaseURL:           cfg.BillingURL(),
		Timeout:           cfg.BillingTimeout,
		MaxConns:          cfg.BillingMaxConns,
		EnrichConcurrency: cfg.BillingEnrichConcurrency,
		Capabilities: gateway.Capabilities{
			IncludeDateOnValueUpdate: cfg.IncludeDateOnValueUpdate(),
		},
	})
	if err != nil {
		return fmt.Errorf("billing client: %w", err)
	}
	a.client = client
	a.console = services.NewConsoleService(client)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
