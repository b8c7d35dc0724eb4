package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/ops"
	"intake/internal/store"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var batchFlags batchFlags

	cmd := &cobra.Command{
		Use:   "archive [item-id]",
		Short: "Archive an item, or a batch of items by status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *ops.Service, _ *store.Store) error {
				if len(args) == 1 {
					result, err := svc.Archive(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Item %s (%s)\n", result.Item.ID, result.Item.Status)
					return nil
				}
				req, err := batchFlags.request()
				if err != nil {
					return err
				}
				result, err := svc.BatchArchive(cmd.Context(), req)
				if err != nil {
					return err
				}
				printBatchResult(cmd, "archive", result)
				return nil
			})
		},
	}

	batchFlags.register(cmd)
	return cmd
}

func newUnarchiveCommand(ctx *commandContext) *cobra.Command {
	var batchFlags batchFlags

	cmd := &cobra.Command{
		Use:   "unarchive [item-id]",
		Short: "Restore archived items",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *ops.Service, _ *store.Store) error {
				if len(args) == 1 {
					result, err := svc.Unarchive(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					fmt.Fprintf(out, "Item %s (%s)\n", result.Item.ID, result.Item.Status)
					if result.Job != nil {
						fmt.Fprintf(out, "  job: %d\n", result.Job.ID)
					}
					return nil
				}
				req, err := batchFlags.request()
				if err != nil {
					return err
				}
				result, err := svc.BatchUnarchive(cmd.Context(), req)
				if err != nil {
					return err
				}
				printBatchResult(cmd, "unarchive", result)
				return nil
			})
		},
	}

	batchFlags.register(cmd)
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var batchFlags batchFlags

	cmd := &cobra.Command{
		Use:   "retry [item-id]",
		Short: "Retry failed items that still have budget",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *ops.Service, _ *store.Store) error {
				if len(args) == 1 {
					result, err := svc.Process(cmd.Context(), ops.ProcessRequest{
						ItemID: args[0],
						Mode:   ops.ModeReprocess,
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Item %s (%s), job %d\n", result.Item.ID, result.Item.Status, result.Job.ID)
					return nil
				}
				req, err := batchFlags.request()
				if err != nil {
					return err
				}
				result, err := svc.BatchRetry(cmd.Context(), req)
				if err != nil {
					return err
				}
				printBatchResult(cmd, "retry", result)
				return nil
			})
		},
	}

	batchFlags.register(cmd)
	return cmd
}

type batchFlags struct {
	statuses []string
	priority string
	offset   int
	limit    int
	dryRun   bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.statuses, "status", nil, "Status filter for batch mode (repeatable)")
	cmd.Flags().StringVar(&f.priority, "priority", "", "Priority filter for batch mode")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "Items to skip in batch mode")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum items to touch in batch mode (0 = all)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Preview the batch outcome without applying it")
}

func (f *batchFlags) request() (ops.BatchRequest, error) {
	statuses, err := parseStatuses(f.statuses)
	if err != nil {
		return ops.BatchRequest{}, err
	}
	return ops.BatchRequest{
		Statuses: statuses,
		Priority: f.priority,
		Offset:   f.offset,
		Limit:    f.limit,
		DryRun:   f.dryRun,
	}, nil
}

func printBatchResult(cmd *cobra.Command, operation string, result *ops.BatchResult) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	if result.DryRun {
		fmt.Fprintf(out, "Dry run: %d item(s) scanned for %s.\n", result.Scanned, operation)
	} else {
		fmt.Fprintf(out, "%d of %d item(s) %sd.\n", result.Applied, result.Scanned, operation)
	}
	for _, outcome := range result.Outcomes {
		kind := statusOK
		message := fmt.Sprintf("%s -> %s", outcome.From, outcome.To)
		switch {
		case outcome.ErrorCode != "":
			kind = statusWarn
			message = outcome.Error
		case result.DryRun:
			kind = statusInfo
		}
		fmt.Fprintln(out, renderStatusLine(outcome.ItemID, kind, message, colorize))
	}
}
