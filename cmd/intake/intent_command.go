package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/ops"
	"intake/internal/store"
)

func newIntentCommand(ctx *commandContext) *cobra.Command {
	var reprocessFlag bool

	cmd := &cobra.Command{
		Use:   "intent <item-id> <new-intent>",
		Short: "Replace an item's stated intent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *ops.Service, _ *store.Store) error {
				result, err := svc.EditIntent(cmd.Context(), args[0], args[1], reprocessFlag)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Item %s (%s)\n", result.Item.ID, result.Item.Status)
				fmt.Fprintf(out, "  intent:  %s\n", result.Item.IntentText)
				fmt.Fprintf(out, "  requeue: %s\n", yesNo(result.Requeue))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reprocessFlag, "reprocess", false, "Re-queue the item so artifacts reflect the new intent")
	return cmd
}
