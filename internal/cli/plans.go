package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newPlansCmd(rt runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List plans as shown on the plan selection page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.WithServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				plans, err := svc.Billing.ListPlans(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, plans)
				}
				if plans.Notice != "" {
					_, _ = fmt.Fprintf(out, "notice: %s\n", plans.Notice)
				}
				for _, plan := range plans.Plans {
					marker := " "
					if plan.DefaultSelected {
						marker = "*"
					}
					available := "available"
					if !plan.Available {
						available = "unavailable"
					}
					_, _ = fmt.Fprintf(out, "%s %s\t%s\t%s\t%s\n", marker, plan.ID, plan.Name, plan.PriceLabel, available)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
