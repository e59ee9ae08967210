package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd(newRuntime()).ExecuteContext(context.Background())
}

func newRootCmd(rt runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gatectl",
		Short:         "streamgate operator CLI",
		Long:          "gatectl inspects access verdicts and watchlists, lists plans, applies migrations and runs sweeper jobs against a streamgate database.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newAccessCmd(rt),
		newWatchlistCmd(rt),
		newPlansCmd(rt),
		newSeedCmd(rt),
		newMigrateCmd(rt),
		newSweepCmd(rt),
	)

	return rootCmd
}
