package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mangatrack/internal/store"
)

func newSubsCmd(a *app) *cobra.Command {
	var filters []string

	cmd := &cobra.Command{
		Use:   "subs <user-id>",
		Short: "List the manga a user is subscribed to",
		Long: `List the cached names of the manga a user is subscribed to.
With --filter, only names containing one of the filters (ignoring case) are shown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				names, err := s.GetSubs(ctx, args[0], filters...)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), names)
			})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "name substring to keep (repeatable)")
	return cmd
}

func newEraseSubsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "erase-subs <user-id>",
		Short: "Delete every subscription of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				n, err := s.EraseSubs(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d subscriptions\n", n)
				return nil
			})
		},
	}
}
