package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/lifecycle"
	"intake/internal/ops"
	"intake/internal/pipeline"
	"intake/internal/retrypolicy"
	"intake/internal/scheduler"
	"intake/internal/services/engine"
	"intake/internal/services/extract"
	"intake/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and drive the processing queue",
	}

	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	queueCmd.AddCommand(newQueueJobsCommand(ctx))
	queueCmd.AddCommand(newQueueTickCommand(ctx))
	return queueCmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show item and job counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, svc *ops.Service, _ *store.Store) error {
				health, err := svc.Health(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintf(out, "%d item(s) total\n", health.TotalItems)
				for _, status := range lifecycle.AllStatuses() {
					count := health.ByStatus[status]
					if count == 0 {
						continue
					}
					kind := statusInfo
					if lifecycle.IsFailed(status) {
						kind = statusWarn
					}
					fmt.Fprintln(out, renderStatusLine(string(status), kind, strconv.Itoa(count), colorize))
				}
				fmt.Fprintf(out, "jobs: %d queued, %d leased, %d failed\n",
					health.QueuedJobs, health.LeasedJobs, health.FailedJobs)
				return nil
			})
		},
	}
}

func newQueueJobsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs <item-id>",
		Short: "List the jobs recorded for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(_ *config.Config, _ *ops.Service, st *store.Store) error {
				jobs, err := st.JobsForItem(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "No jobs recorded.")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					lease := ""
					if job.LeaseExpiresAt != nil {
						lease = job.LeaseExpiresAt.Format("15:04:05")
					}
					rows = append(rows, []string{
						strconv.FormatInt(job.ID, 10),
						job.Kind,
						job.Status,
						strconv.Itoa(job.Attempts),
						lease,
						truncate(job.LastError, 48),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Kind", "Status", "Attempts", "Lease", "Last error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

// newQueueTickCommand runs scheduling ticks in the foreground without the
// daemon. Useful for draining the queue on demand or from cron.
func newQueueTickCommand(ctx *commandContext) *cobra.Command {
	var drainFlag bool

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduling tick (or drain the queue)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(cfg *config.Config, _ *ops.Service, st *store.Store) error {
				sched := buildForegroundScheduler(cfg, st)
				out := cmd.OutOrStdout()
				executed := 0
				for {
					worked, err := sched.Tick(cmd.Context())
					if err != nil {
						return err
					}
					if worked {
						executed++
					}
					if !worked || !drainFlag {
						break
					}
				}
				fmt.Fprintf(out, "%d job(s) executed.\n", executed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&drainFlag, "drain", false, "Keep ticking until the queue is empty")
	return cmd
}

func buildForegroundScheduler(cfg *config.Config, st *store.Store) *scheduler.Scheduler {
	extractor := extract.New(extract.Config{
		TimeoutSeconds: cfg.Extraction.TimeoutSeconds,
		MaxBodyBytes:   cfg.Extraction.MaxBodyBytes,
		MinTextChars:   cfg.Extraction.MinTextChars,
		MaxTextChars:   cfg.Extraction.MaxTextChars,
		UserAgent:      cfg.Extraction.UserAgent,
	})
	var eng pipeline.Engine
	if cfg.Engine.Enabled {
		eng = engine.NewClient(engine.Config{
			APIKey:         cfg.Engine.APIKey,
			BaseURL:        cfg.Engine.BaseURL,
			Model:          cfg.Engine.Model,
			TimeoutSeconds: cfg.Engine.TimeoutSeconds,
		})
	} else {
		eng = engine.NewStub()
	}
	processor := pipeline.NewProcessor(st, extractor, eng,
		time.Duration(cfg.Extraction.TimeoutSeconds)*time.Second, cfg.Engine.Profile, nil)
	return scheduler.New(st, processor, retrypolicy.New(cfg.Scheduler.RetryLimit), scheduler.Options{
		LeaseDuration: time.Duration(cfg.Scheduler.LeaseSeconds) * time.Second,
	}, nil)
}
