package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/ops"
	"intake/internal/store"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <item-id> <artifact-type> <base-version> <target-version>",
		Short: "Diff two stored versions of an artifact",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid base version %q: %w", args[2], err)
			}
			target, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("invalid target version %q: %w", args[3], err)
			}
			return ctx.withService(func(_ *config.Config, svc *ops.Service, _ *store.Store) error {
				summary, err := svc.CompareArtifact(cmd.Context(), args[0], args[1], base, target)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !summary.HasChanges() {
					fmt.Fprintf(out, "No differences between v%d and v%d.\n", base, target)
					return nil
				}
				for _, path := range summary.AddedPaths {
					fmt.Fprintf(out, "  + %s\n", path)
				}
				for _, path := range summary.RemovedPaths {
					fmt.Fprintf(out, "  - %s\n", path)
				}
				for _, path := range summary.ChangedPaths {
					fmt.Fprintf(out, "  ~ %s\n", path)
				}
				fmt.Fprintf(out, "%d of %d lines changed\n", summary.ChangedLineCount, summary.ComparedLineCount)
				return nil
			})
		},
	}
	return cmd
}
