package cli

import (
	"context"
	"fmt"

	watchlistdomain "github.com/smallbiznis/streamgate/internal/watchlist/domain"
	"github.com/spf13/cobra"
)

func newWatchlistCmd(rt runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Inspect and edit a principal's saved titles",
	}

	cmd.AddCommand(
		newWatchlistListCmd(rt),
		newWatchlistAddCmd(rt),
		newWatchlistRemoveCmd(rt),
	)

	return cmd
}

func newWatchlistListCmd(rt runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list <principal-id>",
		Short: "List saved titles, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				entries, err := svc.Watchlist.List(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(out, "watchlist: empty")
					return nil
				}
				for _, entry := range entries {
					_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", entry.TitleID, entry.MediaKind, entry.Name)
				}
				return nil
			})
		},
	}
}

func newWatchlistAddCmd(rt runtime) *cobra.Command {
	var (
		name      string
		mediaKind string
		poster    string
	)
	cmd := &cobra.Command{
		Use:   "add <principal-id> <title-id>",
		Short: "Save a title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				title := watchlistdomain.Title{ID: args[1], Name: name, MediaKind: mediaKind}
				if poster != "" {
					title.PosterPath = &poster
				}
				entry, err := svc.Watchlist.Add(ctx, args[0], title)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s for %s\n", entry.TitleID, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&mediaKind, "media-kind", "movie", "movie or tv")
	cmd.Flags().StringVar(&poster, "poster", "", "poster path")
	return cmd
}

func newWatchlistRemoveCmd(rt runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <principal-id> <title-id>",
		Short: "Remove a saved title",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithServices(cmd.Context(), func(ctx context.Context, svc *services) error {
				if err := svc.Watchlist.Remove(ctx, args[0], args[1]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s for %s\n", args[1], args[0])
				return nil
			})
		},
	}
}
