package main

import (
	"strings"
	"sync"

	"intake/internal/config"
	"intake/internal/logging"
	"intake/internal/ops"
	"intake/internal/retrypolicy"
	"intake/internal/services/export"
	"intake/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withService opens the store for the duration of one command. The store's
// busy-timeout pragma keeps concurrent access with a running daemon safe.
func (c *commandContext) withService(fn func(*config.Config, *ops.Service, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	renderer := export.NewFileRenderer(cfg.Paths.ExportDir, cfg.Export.TemplateVersion)
	svc := ops.NewService(st, renderer, retrypolicy.New(cfg.Scheduler.RetryLimit), logging.NewNop())
	return fn(cfg, svc, st)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
