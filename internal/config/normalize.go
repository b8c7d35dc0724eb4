package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeExtraction()
	c.normalizeEngine()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.PollIntervalSeconds <= 0 {
		c.Scheduler.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Scheduler.LeaseSeconds <= 0 {
		c.Scheduler.LeaseSeconds = defaultLeaseSeconds
	}
	if c.Scheduler.RetryLimit <= 0 {
		c.Scheduler.RetryLimit = defaultRetryLimit
	}
}

func (c *Config) normalizeExtraction() {
	if c.Extraction.TimeoutSeconds <= 0 {
		c.Extraction.TimeoutSeconds = defaultExtractTimeout
	}
	if c.Extraction.MaxBodyBytes <= 0 {
		c.Extraction.MaxBodyBytes = defaultExtractMaxBodyBytes
	}
	if c.Extraction.MinTextChars <= 0 {
		c.Extraction.MinTextChars = defaultExtractMinTextChars
	}
	if c.Extraction.MaxTextChars <= 0 {
		c.Extraction.MaxTextChars = defaultExtractMaxTextChars
	}
	c.Extraction.UserAgent = strings.TrimSpace(c.Extraction.UserAgent)
	if c.Extraction.UserAgent == "" {
		c.Extraction.UserAgent = defaultExtractUserAgent
	}
}

func (c *Config) normalizeEngine() {
	c.Engine.BaseURL = strings.TrimSpace(c.Engine.BaseURL)
	if c.Engine.BaseURL == "" {
		c.Engine.BaseURL = defaultEngineBaseURL
	}
	c.Engine.Model = strings.TrimSpace(c.Engine.Model)
	if c.Engine.Model == "" {
		c.Engine.Model = defaultEngineModel
	}
	if c.Engine.TimeoutSeconds <= 0 {
		c.Engine.TimeoutSeconds = defaultEngineTimeoutSeconds
	}
	c.Engine.Profile = strings.TrimSpace(c.Engine.Profile)
	c.Engine.APIKey = strings.TrimSpace(c.Engine.APIKey)
	if c.Engine.APIKey == "" {
		if value, ok := os.LookupEnv("INTAKE_ENGINE_API_KEY"); ok {
			c.Engine.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.Engine.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeExport() {
	c.Export.TemplateVersion = strings.TrimSpace(c.Export.TemplateVersion)
	if c.Export.TemplateVersion == "" {
		c.Export.TemplateVersion = defaultExportTemplate
	}
	if len(c.Export.Formats) == 0 {
		c.Export.Formats = []string{"md", "json"}
		return
	}
	formats := make([]string, 0, len(c.Export.Formats))
	seen := make(map[string]struct{}, len(c.Export.Formats))
	for _, format := range c.Export.Formats {
		normalized := strings.ToLower(strings.TrimSpace(format))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		formats = append(formats, normalized)
	}
	if len(formats) == 0 {
		formats = []string{"md", "json"}
	}
	c.Export.Formats = formats
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
