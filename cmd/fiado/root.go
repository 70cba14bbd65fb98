package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/fiado/internal/app"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
)

// cli carries the global flags and the lazily built app.
type cli struct {
	as  string
	app *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "fiado",
		Short:         "Store credit ledger: accounts, credit sales, payments and the store audit feed",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}

			c.app = a

			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.app != nil {
				c.app.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.as, "as", os.Getenv("FIADO_AS"), "user id to act as (env FIADO_AS)")

	root.AddCommand(
		c.migrateCmd(),
		c.serveCmd(),
		c.accountCmd(),
		c.saleCmd(),
		c.paymentCmd(),
		c.eventsCmd(),
		c.notificationsCmd(),
	)

	return root
}

// run resolves the acting identity and calls fn with it.
func (c *cli) run(fn func(cmd *cobra.Command, id guard.Identity, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := c.app.Identity(cmd.Context(), c.as)
		if err != nil {
			return err
		}

		out, err := fn(cmd, id, args)
		if err != nil {
			return err
		}

		return printJSON(cmd, out)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func parseID(s, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}

	return id, nil
}

// optionalID parses s, returning nil for an empty string.
func optionalID(s, what string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}

	id, err := parseID(s, what)
	if err != nil {
		return nil, err
	}

	return &id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	return d, nil
}
