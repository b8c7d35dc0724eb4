package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/ops"
	"intake/internal/store"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var intentFlag string
	var titleFlag string
	var sourceFlag string
	var keyFlag string

	cmd := &cobra.Command{
		Use:   "capture <url>",
		Short: "Capture a reference and queue it for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *ops.Service, _ *store.Store) error {
				result, err := svc.Capture(cmd.Context(), ops.CaptureRequest{
					URL:        args[0],
					IntentText: intentFlag,
					Title:      titleFlag,
					SourceType: sourceFlag,
					BodyKey:    keyFlag,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Item %s (%s)\n", result.Item.ID, result.Item.Status)
				fmt.Fprintf(out, "  url:     %s\n", result.Item.URL)
				fmt.Fprintf(out, "  replay:  %s\n", yesNo(result.IdempotentReplay))
				if result.Job != nil {
					fmt.Fprintf(out, "  job:     %d\n", result.Job.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&intentFlag, "intent", "i", "", "Why this reference matters")
	cmd.Flags().StringVar(&titleFlag, "title", "", "Title override")
	cmd.Flags().StringVar(&sourceFlag, "source", "", "Source type (web|youtube|newsletter|other)")
	cmd.Flags().StringVar(&keyFlag, "idempotency-key", "", "Explicit idempotency key")
	return cmd
}
