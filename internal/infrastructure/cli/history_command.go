package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/askai-go/internal/app"
)

const defaultHistoryLimit = 20

func newHistoryCommand(container *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect askai history",
	}
	cmd.AddCommand(
		newHistoryListCommand(container),
		newHistoryClearCommand(container),
	)
	return cmd
}

func newHistoryListCommand(container *app.Container) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := container.History.Records(limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			RenderHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Max entries to show (0 for all)")
	return cmd
}

func newHistoryClearCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.History.Clear(); err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", container.History.Path())
			return nil
		},
	}
}
