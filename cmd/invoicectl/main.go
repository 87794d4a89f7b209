package main

import (
	"fmt"
	"os"

	"github.com/clubledger/clubledger/internal/client"
	"github.com/clubledger/clubledger/internal/config"
	"github.com/clubledger/clubledger/internal/httpclient"
	"github.com/clubledger/clubledger/internal/logger"
	"github.com/clubledger/clubledger/internal/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	baseURL string
	apiKey  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "invoicectl",
		Short:        "Operator CLI for the clubledger invoice service",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&baseURL, "base-url", "http://localhost:8080", "invoice service base URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key sent with every request")

	root.AddCommand(
		newGetCmd(),
		newListCmd(),
		newDiscountCmd(),
		newPayCmd(),
		newDepositCmd(),
		newCancelCmd(),
	)
	return root
}

func newCoordinator() (*client.Coordinator, client.API, error) {
	cfg := config.GetDefaultConfig()
	cfg.Client.BaseURL = baseURL
	cfg.Client.APIKey = apiKey

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	api := client.NewAPI(cfg, httpclient.NewDefaultClientWithTimeout(cfg.Client.Timeout), log)
	return client.NewCoordinator(api, log), api, nil
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <invoice-id>",
		Short: "Fetch and display an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, _, err := newCoordinator()
			if err != nil {
				return err
			}
			defer coord.Close()

			snap, err := coord.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSnapshot(cmd, snap)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var guestID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices, optionally for one guest",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, api, err := newCoordinator()
			if err != nil {
				return err
			}

			snaps, err := api.ListInvoices(cmd.Context(), guestID)
			if err != nil {
				return err
			}
			for _, snap := range snaps {
				cmd.Printf("%s  %-10s  v%-3d  total=%s  balance=%s\n",
					snap.ID, snap.Status, snap.Version,
					snap.Total.StringFixed(2), snap.BalanceDue.StringFixed(2))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&guestID, "guest", "", "filter by guest ID")
	return cmd
}

func newDiscountCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "discount <invoice-id> <amount>",
		Short: "Apply a discount to an invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, args[0], func(coord *client.Coordinator) (*client.Outcome, error) {
				amount, err := decimal.NewFromString(args[1])
				if err != nil {
					return nil, err
				}
				return coord.ApplyDiscount(cmd.Context(), amount, code)
			})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "discount type code")
	return cmd
}

func newPayCmd() *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "pay <invoice-id> <amount>",
		Short: "Record a payment against an invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, args[0], func(coord *client.Coordinator) (*client.Outcome, error) {
				amount, err := decimal.NewFromString(args[1])
				if err != nil {
					return nil, err
				}
				return coord.ProcessPayment(cmd.Context(), amount, types.PaymentMethod(method))
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", string(types.PaymentMethodCash), "payment method (cash, card, room_charge, voucher)")
	return cmd
}

func newDepositCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <invoice-id> <amount>",
		Short: "Record an advance deposit against an invoice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, args[0], func(coord *client.Coordinator) (*client.Outcome, error) {
				amount, err := decimal.NewFromString(args[1])
				if err != nil {
					return nil, err
				}
				return coord.RecordDeposit(cmd.Context(), amount)
			})
		},
	}
}

func newCancelCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <invoice-id>",
		Short: "Cancel an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, args[0], func(coord *client.Coordinator) (*client.Outcome, error) {
				return coord.Cancel(cmd.Context(), reason)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason (required)")
	return cmd
}

func runMutation(cmd *cobra.Command, invoiceID string, mutate func(*client.Coordinator) (*client.Outcome, error)) error {
	coord, _, err := newCoordinator()
	if err != nil {
		return err
	}
	defer coord.Close()

	if _, err := coord.Load(cmd.Context(), invoiceID); err != nil {
		return err
	}

	outcome, err := mutate(coord)
	if err != nil {
		return err
	}

	switch outcome.State {
	case client.AttemptConfirmed:
		cmd.Println("confirmed")
	case client.AttemptConflicted:
		cmd.Println(outcome.Notice)
	case client.AttemptFailed:
		cmd.Println(outcome.Notice)
	}
	printSnapshot(cmd, outcome.Snapshot)
	if outcome.State == client.AttemptFailed {
		return outcome.Err
	}
	return nil
}

func printSnapshot(cmd *cobra.Command, snap *client.Snapshot) {
	if snap == nil {
		return
	}
	cmd.Printf("invoice   %s (%s)\n", snap.ID, snap.InvoiceNumber)
	cmd.Printf("status    %s (version %d)\n", snap.Status, snap.Version)
	cmd.Printf("subtotal  %s %s\n", snap.Subtotal.StringFixed(2), snap.Currency)
	cmd.Printf("discount  %s\n", snap.Discount.StringFixed(2))
	cmd.Printf("total     %s\n", snap.Total.StringFixed(2))
	cmd.Printf("paid      %s\n", snap.AmountPaid.StringFixed(2))
	cmd.Printf("balance   %s\n", snap.BalanceDue.StringFixed(2))
}
