package main

import (
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
)

func (c *cli) accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage customer credit accounts",
	}

	cmd.AddCommand(
		c.accountOpenCmd(),
		c.accountGetCmd(),
		c.accountListCmd(),
		c.accountMineCmd(),
		c.accountFindCmd(),
		c.accountLimitCmd(),
		c.accountActiveCmd("activate", true),
		c.accountActiveCmd("deactivate", false),
		c.accountCanPurchaseCmd(),
		c.accountMoveCmd("charge"),
		c.accountMoveCmd("credit"),
		c.accountDeleteCmd(),
	)

	return cmd
}

func (c *cli) accountOpenCmd() *cobra.Command {
	var store, customer, limit string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a credit account for a customer in a store",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			storeID, err := parseID(store, "store id")
			if err != nil {
				return nil, err
			}

			customerID, err := parseID(customer, "customer id")
			if err != nil {
				return nil, err
			}

			params := account.OpenParams{StoreID: storeID, CustomerID: customerID}

			if limit != "" {
				if params.CreditLimit, err = parseAmount(limit); err != nil {
					return nil, err
				}
			}

			a, err := c.app.Accounts.Open(cmd.Context(), id, params)
			if err != nil {
				return nil, err
			}

			return toAccountResponse(a), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	cmd.Flags().StringVar(&customer, "customer", "", "customer user id")
	cmd.Flags().StringVar(&limit, "limit", "", "credit limit (default 0)")
	_ = cmd.MarkFlagRequired("store")
	_ = cmd.MarkFlagRequired("customer")

	return cmd
}

func (c *cli) accountGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ACCOUNT_ID",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, args []string) (any, error) {
			accountID, err := parseID(args[0], "account id")
			if err != nil {
				return nil, err
			}

			a, err := c.app.Accounts.Get(cmd.Context(), id, accountID)
			if err != nil {
				return nil, err
			}

			return toAccountResponse(a), nil
		}),
	}
}

func (c *cli) accountListCmd() *cobra.Command {
	var store string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the accounts of a store",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			storeID, err := parseID(store, "store id")
			if err != nil {
				return nil, err
			}

			accounts, err := c.app.Accounts.ListByStore(cmd.Context(), id, storeID)
			if err != nil {
				return nil, err
			}

			return mapSlice(accounts, toAccountResponse), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func (c *cli) accountMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your own accounts",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			accounts, err := c.app.Accounts.ListMine(cmd.Context(), id)
			if err != nil {
				return nil, err
			}

			return mapSlice(accounts, toAccountResponse), nil
		}),
	}
}

func (c *cli) accountFindCmd() *cobra.Command {
	var store string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Show your account in a store",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			storeID, err := parseID(store, "store id")
			if err != nil {
				return nil, err
			}

			a, err := c.app.Accounts.Find(cmd.Context(), id, storeID)
			if err != nil {
				return nil, err
			}

			return toAccountResponse(a), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func (c *cli) accountLimitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limit ACCOUNT_ID AMOUNT",
		Short: "Change the credit limit of an account",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, args []string) (any, error) {
			accountID, err := parseID(args[0], "account id")
			if err != nil {
				return nil, err
			}

			limit, err := parseAmount(args[1])
			if err != nil {
				return nil, err
			}

			a, err := c.app.Accounts.SetLimit(cmd.Context(), id, accountID, limit)
			if err != nil {
				return nil, err
			}

			return toAccountResponse(a), nil
		}),
	}
}

func (c *cli) accountActiveCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ACCOUNT_ID",
		Short: "Set whether the account accepts new credit sales",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, args []string) (any, error) {
			accountID, err := parseID(args[0], "account id")
			if err != nil {
				return nil, err
			}

			a, err := c.app.Accounts.SetActive(cmd.Context(), id, accountID, active)
			if err != nil {
				return nil, err
			}

			return toAccountResponse(a), nil
		}),
	}
}

func (c *cli) accountCanPurchaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "can-purchase ACCOUNT_ID AMOUNT",
		Short: "Check whether a credit purchase of AMOUNT would be accepted right now",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, args []string) (any, error) {
			accountID, err := parseID(args[0], "account id")
			if err != nil {
				return nil, err
			}

			amount, err := parseAmount(args[1])
			if err != nil {
				return nil, err
			}

			ok, err := c.app.Accounts.CanPurchase(cmd.Context(), id, accountID, amount)
			if err != nil {
				return nil, err
			}

			return map[string]bool{"can_purchase": ok}, nil
		}),
	}
}

// accountMoveCmd adjusts a balance directly, outside any sale or payment.
func (c *cli) accountMoveCmd(kind string) *cobra.Command {
	short := "Add AMOUNT to the account balance within its credit limit"

	if kind == "credit" {
		short = "Subtract AMOUNT from the account balance"
	}

	return &cobra.Command{
		Use:   kind + " ACCOUNT_ID AMOUNT",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, args []string) (any, error) {
			accountID, err := parseID(args[0], "account id")
			if err != nil {
				return nil, err
			}

			amount, err := parseAmount(args[1])
			if err != nil {
				return nil, err
			}

			fn := c.app.Accounts.Charge
			if kind == "credit" {
				fn = c.app.Accounts.Credit
			}

			a, err := fn(cmd.Context(), id, accountID, amount)
			if err != nil {
				return nil, err
			}

			return toAccountResponse(a), nil
		}),
	}
}

func (c *cli) accountDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ACCOUNT_ID",
		Short: "Delete an account with its sales and payments (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, args []string) (any, error) {
			accountID, err := parseID(args[0], "account id")
			if err != nil {
				return nil, err
			}

			if err := c.app.Accounts.Delete(cmd.Context(), id, accountID); err != nil {
				return nil, err
			}

			return map[string]string{"deleted": accountID.String()}, nil
		}),
	}
}
