package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd(rt runtime) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "sweep [job]",
		Short: "Run sweeper jobs once, or a single job by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				out := cmd.OutOrStdout()
				if list {
					for _, job := range svc.Sweeper.Jobs() {
						_, _ = fmt.Fprintf(out, "%s\t%s\n", job.Name, job.Schedule)
					}
					return nil
				}
				if len(args) == 1 {
					if err := svc.Sweeper.RunJob(ctx, args[0]); err != nil {
						return err
					}
					_, _ = fmt.Fprintf(out, "ran %s\n", args[0])
					return nil
				}
				if err := svc.Sweeper.RunOnce(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "ran %d jobs\n", len(svc.Sweeper.Jobs()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list jobs and schedules")
	return cmd
}
