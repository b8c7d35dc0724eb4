package config

import (
	"errors"
	"fmt"
	"strings"
)

var knownExportFormats = map[string]struct{}{
	"md":   {},
	"json": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		return errors.New("paths.export_dir must be set")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	return ensurePositiveMap(map[string]int{
		"scheduler.poll_interval_seconds": c.Scheduler.PollIntervalSeconds,
		"scheduler.lease_seconds":         c.Scheduler.LeaseSeconds,
		"scheduler.retry_limit":           c.Scheduler.RetryLimit,
	})
}

func (c *Config) validateExtraction() error {
	if err := ensurePositiveMap(map[string]int{
		"extraction.timeout_seconds": c.Extraction.TimeoutSeconds,
		"extraction.min_text_chars":  c.Extraction.MinTextChars,
		"extraction.max_text_chars":  c.Extraction.MaxTextChars,
	}); err != nil {
		return err
	}
	if c.Extraction.MaxBodyBytes <= 0 {
		return errors.New("extraction.max_body_bytes must be positive")
	}
	if c.Extraction.MaxTextChars < c.Extraction.MinTextChars {
		return errors.New("extraction.max_text_chars must be >= extraction.min_text_chars")
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.Enabled && strings.TrimSpace(c.Engine.APIKey) == "" {
		return errors.New("engine.api_key must be set when engine.enabled is true (or set OPENROUTER_API_KEY)")
	}
	if c.Engine.TimeoutSeconds <= 0 {
		return errors.New("engine.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateExport() error {
	for _, format := range c.Export.Formats {
		if _, ok := knownExportFormats[format]; !ok {
			return fmt.Errorf("export.formats: unknown format %q", format)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
