package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/ops"
	"intake/internal/store"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var formatsFlag []string
	var keyFlag string

	cmd := &cobra.Command{
		Use:   "export <item-id>",
		Short: "Render an item's card into shareable files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(cfg *config.Config, svc *ops.Service, _ *store.Store) error {
				formats := formatsFlag
				if len(formats) == 0 {
					formats = cfg.Export.Formats
				}
				result, err := svc.Export(cmd.Context(), ops.ExportRequest{
					ItemID:  args[0],
					Formats: formats,
					BodyKey: keyFlag,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Item %s (%s)\n", result.Item.ID, result.Item.Status)
				fmt.Fprintf(out, "  renderer: %s (%s)\n", result.Export.Renderer, result.Export.TemplateVersion)
				fmt.Fprintf(out, "  replay:   %s\n", yesNo(result.IdempotentReplay))
				for _, file := range result.Export.Files {
					fmt.Fprintf(out, "  file:     %s (%d bytes)\n", file.Path, file.Bytes)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&formatsFlag, "format", nil, "Output formats (md|json); defaults to the configured set")
	cmd.Flags().StringVar(&keyFlag, "idempotency-key", "", "Explicit idempotency key")
	return cmd
}
