package cli

import (
	"context"
	"fmt"

	billingdomain "github.com/smallbiznis/streamgate/internal/billing/domain"
	"github.com/spf13/cobra"
)

type accessReport struct {
	PrincipalID   string                             `json:"principal_id"`
	Granted       bool                               `json:"granted"`
	Record        *billingdomain.SubscriptionRecord  `json:"record,omitempty"`
	Subscriptions []billingdomain.SubscriptionRecord `json:"subscriptions"`
}

func newAccessCmd(rt runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "access <principal-id>",
		Short: "Show the effective access verdict for a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			principalID := args[0]
			return rt.WithServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				verdict, records, err := svc.Access.Current(ctx, principalID)
				if err != nil {
					return err
				}
				if records == nil {
					records = []billingdomain.SubscriptionRecord{}
				}

				out := cmd.OutOrStdout()
				if asJSON {
					return printJSON(out, accessReport{
						PrincipalID:   principalID,
						Granted:       verdict.Granted,
						Record:        verdict.Record,
						Subscriptions: records,
					})
				}

				_, _ = fmt.Fprintf(out, "principal: %s\n", principalID)
				_, _ = fmt.Fprintf(out, "granted: %t\n", verdict.Granted)
				if verdict.Record != nil {
					_, _ = fmt.Fprintf(out, "subscription: %s (%s)\n", verdict.Record.ID, verdict.Record.Status)
				}
				_, _ = fmt.Fprintf(out, "records: %d\n", len(records))
				for _, record := range records {
					_, _ = fmt.Fprintf(out, "  %s %s created=%s\n", record.ID, record.Status, record.Created.UTC().Format("2006-01-02"))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
