package main

import (
	"log/slog"
	"time"

	"intake/internal/config"
	"intake/internal/pipeline"
	"intake/internal/retrypolicy"
	"intake/internal/scheduler"
	"intake/internal/services/engine"
	"intake/internal/services/extract"
	"intake/internal/store"
)

// buildScheduler wires the extraction and enrichment collaborators into a
// processor and hands it to the scheduler. Without an enabled engine the
// deterministic stub keeps the pipeline usable offline.
func buildScheduler(cfg *config.Config, st *store.Store, logger *slog.Logger) *scheduler.Scheduler {
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

	processor := pipeline.NewProcessor(
		st,
		extractor,
		eng,
		time.Duration(cfg.Extraction.TimeoutSeconds)*time.Second,
		cfg.Engine.Profile,
		logger,
	)
	return scheduler.New(st, processor, retrypolicy.New(cfg.Scheduler.RetryLimit), scheduler.Options{
		PollInterval:  time.Duration(cfg.Scheduler.PollIntervalSeconds) * time.Second,
		LeaseDuration: time.Duration(cfg.Scheduler.LeaseSeconds) * time.Second,
	}, logger)
}
