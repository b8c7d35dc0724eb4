package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/ops"
	"intake/internal/store"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var pinFlags []string
	var historyFlag bool

	cmd := &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show an item with its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parsePins(pinFlags)
			if err != nil {
				return err
			}
			return ctx.withService(func(_ *config.Config, svc *ops.Service, _ *store.Store) error {
				detail, err := svc.GetItem(cmd.Context(), args[0], overrides, historyFlag)
				if err != nil {
					return err
				}
				printItemDetail(cmd, detail)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&pinFlags, "pin", nil, "Pin an artifact version as type=version (repeatable)")
	cmd.Flags().BoolVar(&historyFlag, "history", false, "Include the full version history per artifact type")
	return cmd
}

func parsePins(pins []string) (map[string]int, error) {
	if len(pins) == 0 {
		return nil, nil
	}
	overrides := make(map[string]int, len(pins))
	for _, pin := range pins {
		parts := strings.SplitN(pin, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid pin %q: expected type=version", pin)
		}
		version, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid pin %q: %w", pin, err)
		}
		overrides[strings.ToLower(strings.TrimSpace(parts[0]))] = version
	}
	return overrides, nil
}

func printItemDetail(cmd *cobra.Command, detail *ops.ItemDetail) {
	out := cmd.OutOrStdout()
	item := detail.Item

	fmt.Fprintf(out, "Item %s (%s)\n", item.ID, item.Status)
	fmt.Fprintf(out, "  url:      %s\n", item.URL)
	if item.Title != "" {
		fmt.Fprintf(out, "  title:    %s\n", item.Title)
	}
	fmt.Fprintf(out, "  source:   %s\n", item.SourceType)
	if item.IntentText != "" {
		fmt.Fprintf(out, "  intent:   %s\n", item.IntentText)
	}
	if item.Priority != "" {
		fmt.Fprintf(out, "  priority: %s", item.Priority)
		if item.MatchScore != nil {
			fmt.Fprintf(out, " (match %.0f)", *item.MatchScore)
		}
		fmt.Fprintln(out)
	}
	if detail.Failure != nil {
		fmt.Fprintf(out, "  failure:  %s/%s %s (retryable: %s, %d/%d)\n",
			detail.Failure.FailedStep, detail.Failure.ErrorCode, detail.Failure.Message,
			yesNo(detail.Failure.Retryable), detail.Failure.RetryAttempts, detail.Failure.RetryLimit)
	}

	if len(detail.Artifacts) > 0 {
		rows := make([][]string, 0, len(detail.Artifacts))
		for _, artifactType := range artifactDisplayOrder {
			art, ok := detail.Artifacts[artifactType]
			if !ok {
				continue
			}
			rows = append(rows, []string{
				art.Type,
				strconv.Itoa(art.Version),
				art.CreatedBy,
				art.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(
			[]string{"Artifact", "Version", "By", "Created"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
		))
	}

	if detail.History != nil {
		for _, artifactType := range artifactDisplayOrder {
			history, ok := detail.History[artifactType]
			if !ok || len(history) < 2 {
				continue
			}
			versions := make([]string, 0, len(history))
			for _, art := range history {
				versions = append(versions, "v"+strconv.Itoa(art.Version))
			}
			fmt.Fprintf(out, "  %s history: %s\n", artifactType, strings.Join(versions, ", "))
		}
	}
}

var artifactDisplayOrder = []string{
	store.ArtifactExtraction,
	store.ArtifactSummary,
	store.ArtifactScore,
	store.ArtifactTodos,
	store.ArtifactCard,
	store.ArtifactExport,
}
