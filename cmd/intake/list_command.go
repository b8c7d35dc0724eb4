package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/lifecycle"
	"intake/internal/ops"
	"intake/internal/store"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var priorityFlag string
	var limitFlag int
	var offsetFlag int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List captured items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withService(func(_ *config.Config, svc *ops.Service, _ *store.Store) error {
				items, err := svc.ListItems(cmd.Context(), store.ItemFilter{
					Statuses: statuses,
					Priority: priorityFlag,
					Limit:    limitFlag,
					Offset:   offsetFlag,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No items found.")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.ID,
						string(item.Status),
						item.Priority,
						truncate(item.Title, 40),
						truncate(item.Domain, 24),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Status", "Priority", "Title", "Domain"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVar(&priorityFlag, "priority", "", "Filter by priority bucket")
	cmd.Flags().IntVar(&limitFlag, "limit", 50, "Maximum items to list")
	cmd.Flags().IntVar(&offsetFlag, "offset", 0, "Items to skip")
	return cmd
}

func parseStatuses(values []string) ([]lifecycle.Status, error) {
	if len(values) == 0 {
		return nil, nil
	}
	statuses := make([]lifecycle.Status, 0, len(values))
	for _, value := range values {
		status, ok := lifecycle.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %q (known: %s)", value, knownStatusList())
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func knownStatusList() string {
	all := lifecycle.AllStatuses()
	names := make([]string, len(all))
	for i, status := range all {
		names[i] = string(status)
	}
	return strings.Join(names, ", ")
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}
