package main

import (
	"context"
	"fmt"
	"strconv"

	gateway "github.com/nimasrn/billing-console/internal/gateways"
	"github.com/nimasrn/billing-console/internal/model"
	"github.com/spf13/cobra"
)

type readFunc func(ctx context.Context, args []string) (gateway.OperationResult, error)

type writeFunc func(ctx context.Context, args []string) (model.Outcome, error)

// read prints the payload of a lookup, failing on anything but a 2xx.
func (a *app) read(fn readFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		res, err := fn(cmd.Context(), args)
		if err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("upstream answered status %d", res.Status)
		}
		return printJSON(cmd, res.Payload)
	}
}

// write prints the payload of a mutation; the notice goes to stderr.
func (a *app) write(fn writeFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		out, err := fn(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), out.Notice)
		if !out.OK {
			return fmt.Errorf("upstream answered status %d", out.Status)
		}
		return printJSON(cmd, out.Payload)
	}
}

func (a *app) subscriptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "subscriptions",
		Short: "List subscriptions with customer names",
		Args:  cobra.NoArgs,
		RunE: a.read(func(ctx context.Context, _ []string) (gateway.OperationResult, error) {
			return a.client.ListSubscriptions(ctx, a.apiKey)
		}),
	}
}

func (a *app) customersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "customers",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: a.read(func(ctx context.Context, _ []string) (gateway.OperationResult, error) {
			return a.client.ListCustomers(ctx, a.apiKey)
		}),
	}
}

func (a *app) customerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "customer <id>",
		Short: "Show one customer",
		Args:  cobra.ExactArgs(1),
		RunE: a.read(func(ctx context.Context, args []string) (gateway.OperationResult, error) {
			return a.client.GetCustomer(ctx, a.apiKey, args[0])
		}),
	}
}

func (a *app) paymentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payments <customerId>",
		Short: "List the payments of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: a.read(func(ctx context.Context, args []string) (gateway.OperationResult, error) {
			return a.client.ListCustomerPayments(ctx, a.apiKey, args[0])
		}),
	}
}

func (a *app) setValueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-value <subscriptionId> <value> [date]",
		Short: "Change the value of a subscription",
		Args:  cobra.RangeArgs(2, 3),
		RunE: a.write(func(ctx context.Context, args []string) (model.Outcome, error) {
			value, err := parseValue(args[1])
			if err != nil {
				return model.Outcome{}, err
			}
			p := model.SubscriptionValueUpdate{SubscriptionID: args[0], Value: value}
			if len(args) == 3 {
				p.Date = args[2]
			}
			return a.console.UpdateSubscriptionValue(ctx, a.apiKey, p)
		}),
	}
}

func (a *app) setSubscriptionDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-subscription-due <subscriptionId> <date>",
		Short: "Move the next due date of a subscription",
		Args:  cobra.ExactArgs(2),
		RunE: a.write(func(ctx context.Context, args []string) (model.Outcome, error) {
			return a.console.UpdateSubscriptionDueDate(ctx, a.apiKey, model.DueDateUpdate{ID: args[0], DueDate: args[1]})
		}),
	}
}

func (a *app) setPaymentDueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-payment-due <paymentId> <date>",
		Short: "Move the due date of a payment",
		Args:  cobra.ExactArgs(2),
		RunE: a.write(func(ctx context.Context, args []string) (model.Outcome, error) {
			return a.console.UpdatePaymentDueDate(ctx, a.apiKey, model.DueDateUpdate{ID: args[0], DueDate: args[1]})
		}),
	}
}

func (a *app) remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind <customerId> <date> <value>",
		Short: "Issue a boleto reminder charge",
		Args:  cobra.ExactArgs(3),
		RunE: a.write(func(ctx context.Context, args []string) (model.Outcome, error) {
			value, err := parseValue(args[2])
			if err != nil {
				return model.Outcome{}, err
			}
			return a.console.SendPaymentReminder(ctx, a.apiKey, model.PaymentReminder{
				CustomerID: args[0],
				DueDate:    args[1],
				Value:      value,
			})
		}),
	}
}

func (a *app) debitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debit <subscriptionId>",
		Short: "Charge the next installment of a subscription now",
		Args:  cobra.ExactArgs(1),
		RunE: a.write(func(ctx context.Context, args []string) (model.Outcome, error) {
			return a.console.DebitNextCharge(ctx, a.apiKey, args[0])
		}),
	}
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return v, nil
}
