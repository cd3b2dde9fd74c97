package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"voidbot/internal/config"
	"voidbot/internal/logging"
	"voidbot/internal/queue"
	"voidbot/internal/state"
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

// withStores opens the state store and queue for a one-shot command and
// closes them when the callback returns. Command output stays on stdout, so
// the stores run with a nop logger.
func (c *commandContext) withStores(ctx context.Context, fn func(cfg *config.Config, store *state.Store, q *queue.Queue) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := state.Open(cfg, logging.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := queue.New(cfg, store, logging.NewNop())
	if err != nil {
		return err
	}
	return fn(cfg, store, q)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
