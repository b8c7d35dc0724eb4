package config

const (
	defaultDataDir              = "~/.local/share/intake"
	defaultExportDir            = "~/.local/share/intake/exports"
	defaultLogDir               = "~/.local/share/intake/logs"
	defaultPollIntervalSeconds  = 5
	defaultLeaseSeconds         = 60
	defaultRetryLimit           = 3
	defaultExtractTimeout       = 8
	defaultExtractMaxBodyBytes  = 5 << 20
	defaultExtractMinTextChars  = 100
	defaultExtractMaxTextChars  = 15000
	defaultExtractUserAgent     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	defaultEngineBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultEngineModel          = "google/gemini-3-flash-preview"
	defaultEngineTimeoutSeconds = 60
	defaultExportTemplate       = "card/v1"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			ExportDir: defaultExportDir,
			LogDir:    defaultLogDir,
		},
		Scheduler: Scheduler{
			PollIntervalSeconds: defaultPollIntervalSeconds,
			LeaseSeconds:        defaultLeaseSeconds,
			RetryLimit:          defaultRetryLimit,
		},
		Extraction: Extraction{
			TimeoutSeconds: defaultExtractTimeout,
			MaxBodyBytes:   defaultExtractMaxBodyBytes,
			MinTextChars:   defaultExtractMinTextChars,
			MaxTextChars:   defaultExtractMaxTextChars,
			UserAgent:      defaultExtractUserAgent,
		},
		Engine: Engine{
			BaseURL:        defaultEngineBaseURL,
			Model:          defaultEngineModel,
			TimeoutSeconds: defaultEngineTimeoutSeconds,
		},
		Export: Export{
			TemplateVersion: defaultExportTemplate,
			Formats:         []string{"md", "json"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
