package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"keepsake/internal/config"
	"keepsake/internal/logging"
	"keepsake/internal/session"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
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

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openStore() (*session.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return session.Open(cfg)
}

// withSession loads a session by (possibly short) id and runs fn while
// holding the session's advisory lock.
func (c *commandContext) withSession(cmd *cobra.Command, id string, fn func(cfg *config.Config, store *session.Store, sess *session.Session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := c.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}

	lock, err := session.AcquireLock(session.NewPaths(cfg.Paths.SessionsDir, sess.ID))
	if err != nil {
		return err
	}
	defer lock.Release()

	return fn(cfg, store, sess)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for current := cmd; current != nil; current = current.Parent() {
		if current.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
