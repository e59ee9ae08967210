package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/streamgate/internal/seed"
	"github.com/spf13/cobra"
)

func newSeedCmd(rt runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed a local three-tier plan catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.WithServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				n, err := seed.EnsureDevPlans(ctx, svc.Plans, time.Now())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d plans\n", n)
				return nil
			})
		},
	}
}
