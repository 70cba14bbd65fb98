package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/notify"
)

func (c *cli) notificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Inspect the receipt queue",
	}

	cmd.AddCommand(c.notificationsDrainCmd())

	return cmd
}

// notificationsDrainCmd pops queued receipts and prints them. It does not need --as.
func (c *cli) notificationsDrainCmd() *cobra.Command {
	var (
		timeout time.Duration
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Pop queued receipt requests and print them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.app.Queue == nil {
				return errors.New("redis is disabled, set REDIS_ENABLED=true")
			}

			var drained []notify.Request

			for limit <= 0 || len(drained) < limit {
				req, err := c.app.Queue.Pop(cmd.Context(), timeout)
				if err != nil {
					return err
				}

				if req == nil {
					break
				}

				drained = append(drained, *req)
			}

			c.app.Log.Info("drained notification queue", zap.Int("count", len(drained)))

			return printJSON(cmd, drained)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Second, "how long to wait for the next request")
	cmd.Flags().IntVar(&limit, "max", 0, "stop after this many requests (0 means until empty)")

	return cmd
}
