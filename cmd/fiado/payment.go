package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/payment"
)

func (c *cli) paymentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Record and review payments against account balances",
	}

	cmd.AddCommand(
		c.paymentCreateCmd(),
		c.paymentGetCmd(),
		c.paymentListCmd(),
		c.paymentMineCmd(),
		c.paymentStateCmd("apply", payment.StateApplied, "Apply a pending payment, crediting the account"),
		c.paymentStateCmd("reject", payment.StateRejected, "Reject a pending payment"),
		c.paymentStateCmd("reopen", payment.StatePending, "Put a rejected payment back to pending"),
	)

	return cmd
}

func (c *cli) paymentCreateCmd() *cobra.Command {
	var acc, amount, method, state, obs string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a payment",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			accountID, err := parseID(acc, "account id")
			if err != nil {
				return nil, err
			}

			amt, err := parseAmount(amount)
			if err != nil {
				return nil, err
			}

			p, err := c.app.Payments.Create(cmd.Context(), id, payment.CreateParams{
				AccountID:    accountID,
				Amount:       amt,
				Method:       payment.Method(strings.ToUpper(method)),
				Observations: obs,
				InitialState: payment.State(strings.ToUpper(state)),
			})
			if err != nil {
				return nil, err
			}

			return toPaymentResponse(p), nil
		}),
	}

	cmd.Flags().StringVar(&acc, "account", "", "account id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount received")
	cmd.Flags().StringVar(&method, "method", "", "CASH, CARD, TRANSFER or CHECK (default CASH)")
	cmd.Flags().StringVar(&state, "state", "", "APPLIED or PENDING (default APPLIED)")
	cmd.Flags().StringVar(&obs, "obs", "", "observations")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func (c *cli) paymentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get PAYMENT_ID",
		Short: "Show a payment",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, args []string) (any, error) {
			paymentID, err := parseID(args[0], "payment id")
			if err != nil {
				return nil, err
			}

			p, err := c.app.Payments.Get(cmd.Context(), id, paymentID)
			if err != nil {
				return nil, err
			}

			return toPaymentResponse(p), nil
		}),
	}
}

type paymentFilterFlags struct {
	state, account string
}

func (f *paymentFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.state, "state", "", "filter by state")
	cmd.Flags().StringVar(&f.account, "account", "", "filter by account id")
}

func (f *paymentFilterFlags) filter() (payment.ListFilter, error) {
	var filter payment.ListFilter

	if f.state != "" {
		filter.State = new(payment.State(strings.ToUpper(f.state)))
	}

	accountID, err := optionalID(f.account, "account id")
	if err != nil {
		return filter, err
	}

	filter.AccountID = accountID

	return filter, nil
}

func (c *cli) paymentListCmd() *cobra.Command {
	var (
		store string
		flags paymentFilterFlags
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the payments of a store, newest first",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			storeID, err := parseID(store, "store id")
			if err != nil {
				return nil, err
			}

			filter, err := flags.filter()
			if err != nil {
				return nil, err
			}

			payments, err := c.app.Payments.ListByStore(cmd.Context(), id, storeID, filter)
			if err != nil {
				return nil, err
			}

			return mapSlice(payments, toPaymentResponse), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	_ = cmd.MarkFlagRequired("store")
	flags.register(cmd)

	return cmd
}

func (c *cli) paymentMineCmd() *cobra.Command {
	var flags paymentFilterFlags

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List your own payments, newest first",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			filter, err := flags.filter()
			if err != nil {
				return nil, err
			}

			payments, err := c.app.Payments.ListMine(cmd.Context(), id, filter)
			if err != nil {
				return nil, err
			}

			return mapSlice(payments, toPaymentResponse), nil
		}),
	}

	flags.register(cmd)

	return cmd
}

func (c *cli) paymentStateCmd(use string, to payment.State, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PAYMENT_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, args []string) (any, error) {
			paymentID, err := parseID(args[0], "payment id")
			if err != nil {
				return nil, err
			}

			p, err := c.app.Payments.ChangeState(cmd.Context(), id, paymentID, to)
			if err != nil {
				return nil, err
			}

			return toPaymentResponse(p), nil
		}),
	}
}
