package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/ops"
	"intake/internal/store"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var keyFlag string

	cmd := &cobra.Command{
		Use:   "process <item-id>",
		Short: "Queue an item for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *ops.Service, _ *store.Store) error {
				result, err := svc.Process(cmd.Context(), ops.ProcessRequest{
					ItemID:  args[0],
					Mode:    modeFlag,
					BodyKey: keyFlag,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Item %s (%s)\n", result.Item.ID, result.Item.Status)
				fmt.Fprintf(out, "  job:     %d\n", result.Job.ID)
				fmt.Fprintf(out, "  replay:  %s\n", yesNo(result.IdempotentReplay))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", ops.ModeProcess, "Processing mode (process|reprocess|regenerate)")
	cmd.Flags().StringVar(&keyFlag, "idempotency-key", "", "Explicit idempotency key")
	return cmd
}
