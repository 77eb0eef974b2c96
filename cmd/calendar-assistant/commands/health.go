package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the calendar backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			start := time.Now()
			if err := c.Health(cmd.Context()); err != nil {
				return fmt.Errorf("backend unhealthy: %w", err)
			}
			fmt.Fprintf(a.out, "Backend %s is healthy (%s)\n", a.cfg.APIURL, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
