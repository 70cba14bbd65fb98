package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/sale"
)

func (c *cli) saleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sale",
		Short: "Register and settle sales",
	}

	cmd.AddCommand(
		c.saleCreateCmd(),
		c.saleGetCmd(),
		c.saleListCmd(),
		c.saleMineCmd(),
		c.saleStateCmd("cancel", "Cancel a pending sale, returning credit to the account"),
		c.saleStateCmd("pay", "Mark a sale as paid"),
		c.salePayAllCmd(),
		c.saleSettleCmd(),
	)

	return cmd
}

// parseItem reads PRODUCT_ID[:QUANTITY]. The quantity defaults to 1.
func parseItem(s string) (sale.ItemParams, error) {
	product, qty, found := strings.Cut(s, ":")

	productID, err := parseID(product, "product id")
	if err != nil {
		return sale.ItemParams{}, err
	}

	item := sale.ItemParams{ProductID: productID, Quantity: 1}

	if found {
		if item.Quantity, err = strconv.Atoi(qty); err != nil {
			return sale.ItemParams{}, fmt.Errorf("invalid quantity %q: %w", qty, err)
		}
	}

	return item, nil
}

func (c *cli) saleCreateCmd() *cobra.Command {
	var (
		store, typ, acc, customerName, obs string
		items                              []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a sale",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			storeID, err := parseID(store, "store id")
			if err != nil {
				return nil, err
			}

			accountID, err := optionalID(acc, "account id")
			if err != nil {
				return nil, err
			}

			params := sale.CreateParams{
				StoreID:            storeID,
				Type:               sale.Type(strings.ToUpper(typ)),
				AccountID:          accountID,
				OccasionalCustomer: customerName,
				Observations:       obs,
			}

			for _, raw := range items {
				item, err := parseItem(raw)
				if err != nil {
					return nil, err
				}

				params.Items = append(params.Items, item)
			}

			s, err := c.app.Sales.Create(cmd.Context(), id, params)
			if err != nil {
				return nil, err
			}

			return toSaleResponse(s), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	cmd.Flags().StringVar(&typ, "type", string(sale.TypeCredit), "sale type: CREDIT or CASH")
	cmd.Flags().StringVar(&acc, "account", "", "customer account id")
	cmd.Flags().StringVar(&customerName, "customer-name", "", "name of an occasional customer (cash sales without account)")
	cmd.Flags().StringArrayVar(&items, "item", nil, "PRODUCT_ID[:QUANTITY], repeatable")
	cmd.Flags().StringVar(&obs, "obs", "", "observations")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func (c *cli) saleGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get SALE_ID",
		Short: "Show a sale with its items",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, args []string) (any, error) {
			saleID, err := parseID(args[0], "sale id")
			if err != nil {
				return nil, err
			}

			s, err := c.app.Sales.Get(cmd.Context(), id, saleID)
			if err != nil {
				return nil, err
			}

			return toSaleResponse(s), nil
		}),
	}
}

type saleFilterFlags struct {
	state, typ, account string
}

func (f *saleFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.state, "state", "", "filter by state")
	cmd.Flags().StringVar(&f.typ, "type", "", "filter by type")
	cmd.Flags().StringVar(&f.account, "account", "", "filter by account id")
}

func (f *saleFilterFlags) filter() (sale.ListFilter, error) {
	var filter sale.ListFilter

	if f.state != "" {
		filter.State = new(sale.State(strings.ToUpper(f.state)))
	}

	if f.typ != "" {
		filter.Type = new(sale.Type(strings.ToUpper(f.typ)))
	}

	accountID, err := optionalID(f.account, "account id")
	if err != nil {
		return filter, err
	}

	filter.AccountID = accountID

	return filter, nil
}

func (c *cli) saleListCmd() *cobra.Command {
	var (
		store string
		flags saleFilterFlags
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the sales of a store, newest first",
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

			sales, err := c.app.Sales.ListByStore(cmd.Context(), id, storeID, filter)
			if err != nil {
				return nil, err
			}

			return mapSlice(sales, toSaleResponse), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	_ = cmd.MarkFlagRequired("store")
	flags.register(cmd)

	return cmd
}

func (c *cli) saleMineCmd() *cobra.Command {
	var flags saleFilterFlags

	cmd := &cobra.Command{
		Use:   "mine",
		Short: "List your own sales, newest first",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			filter, err := flags.filter()
			if err != nil {
				return nil, err
			}

			sales, err := c.app.Sales.ListMine(cmd.Context(), id, filter)
			if err != nil {
				return nil, err
			}

			return mapSlice(sales, toSaleResponse), nil
		}),
	}

	flags.register(cmd)

	return cmd
}

func (c *cli) saleStateCmd(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " SALE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, args []string) (any, error) {
			saleID, err := parseID(args[0], "sale id")
			if err != nil {
				return nil, err
			}

			change := c.app.Sales.MarkPaid
			if use == "cancel" {
				change = c.app.Sales.Cancel
			}

			s, err := change(cmd.Context(), id, saleID)
			if err != nil {
				return nil, err
			}

			return toSaleResponse(s), nil
		}),
	}
}

func (c *cli) salePayAllCmd() *cobra.Command {
	var store, customer string

	cmd := &cobra.Command{
		Use:   "pay-all",
		Short: "Mark every open sale of a customer as paid without touching the balance",
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

			sales, err := c.app.Sales.MarkAllPaidForCustomer(cmd.Context(), id, storeID, customerID)
			if err != nil {
				return nil, err
			}

			return mapSlice(sales, toSaleResponse), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	cmd.Flags().StringVar(&customer, "customer", "", "customer user id")
	_ = cmd.MarkFlagRequired("store")
	_ = cmd.MarkFlagRequired("customer")

	return cmd
}

func (c *cli) saleSettleCmd() *cobra.Command {
	var store string

	cmd := &cobra.Command{
		Use:   "settle",
		Short: "Pay off all your open sales in a store, crediting your account",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			storeID, err := parseID(store, "store id")
			if err != nil {
				return nil, err
			}

			sales, err := c.app.Sales.SettleMine(cmd.Context(), id, storeID)
			if err != nil {
				return nil, err
			}

			return mapSlice(sales, toSaleResponse), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}
