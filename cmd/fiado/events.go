package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/fiado/internal/audit"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
)

const dateLayout = "2006-01-02"

func (c *cli) eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Read and extend the store audit feed",
	}

	cmd.AddCommand(
		c.eventsListCmd(),
		c.eventsAddCmd(),
		c.eventsSummaryCmd(),
	)

	return cmd
}

// parseDate reads YYYY-MM-DD in local time, returning nil for an empty string.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}

	return &t, nil
}

func (c *cli) eventsListCmd() *cobra.Command {
	var (
		store, typ, from, to string
		limit, offset        int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List store events, newest first",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			storeID, err := parseID(store, "store id")
			if err != nil {
				return nil, err
			}

			filter := audit.ListFilter{StoreID: storeID, Limit: limit, Offset: offset}

			if typ != "" {
				filter.Type = new(audit.Type(strings.ToUpper(typ)))
			}

			if filter.From, err = parseDate(from); err != nil {
				return nil, err
			}

			// --to is inclusive of the whole day.
			if filter.To, err = parseDate(to); err != nil {
				return nil, err
			}

			if filter.To != nil {
				filter.To = new(filter.To.AddDate(0, 0, 1))
			}

			events, err := c.app.Trail.List(cmd.Context(), id, filter)
			if err != nil {
				return nil, err
			}

			return mapSlice(events, toEventResponse), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	cmd.Flags().StringVar(&typ, "type", "", "filter by event type")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default 50, max 200)")
	cmd.Flags().IntVar(&offset, "offset", 0, "events to skip")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}

func (c *cli) eventsAddCmd() *cobra.Command {
	var store, customer, desc, amount string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a manual entry to the store feed",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			storeID, err := parseID(store, "store id")
			if err != nil {
				return nil, err
			}

			customerID, err := optionalID(customer, "customer id")
			if err != nil {
				return nil, err
			}

			params := audit.CreateParams{StoreID: storeID, CustomerID: customerID, Description: desc}

			if amount != "" {
				var amt decimal.Decimal
				if amt, err = parseAmount(amount); err != nil {
					return nil, err
				}

				params.Amount = &amt
			}

			ev, err := c.app.Trail.Create(cmd.Context(), id, params)
			if err != nil {
				return nil, err
			}

			return toEventResponse(ev), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	cmd.Flags().StringVar(&customer, "customer", "", "customer user id")
	cmd.Flags().StringVar(&desc, "desc", "", "description")
	cmd.Flags().StringVar(&amount, "amount", "", "amount")
	_ = cmd.MarkFlagRequired("store")
	_ = cmd.MarkFlagRequired("desc")

	return cmd
}

func (c *cli) eventsSummaryCmd() *cobra.Command {
	var store string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show sales and payments registered today and this month",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, id guard.Identity, _ []string) (any, error) {
			storeID, err := parseID(store, "store id")
			if err != nil {
				return nil, err
			}

			s, err := c.app.Trail.Summary(cmd.Context(), id, storeID)
			if err != nil {
				return nil, err
			}

			return toSummaryResponse(s), nil
		}),
	}

	cmd.Flags().StringVar(&store, "store", "", "store id")
	_ = cmd.MarkFlagRequired("store")

	return cmd
}
