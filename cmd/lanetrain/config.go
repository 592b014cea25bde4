package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lanetrain/internal/config"
	"github.com/samcharles93/lanetrain/internal/logger"
	"github.com/samcharles93/lanetrain/internal/seqbatch"
)

// loadRunConfig reads --config, or the user config file when the flag is
// absent, and lets explicitly set logging flags win over the file. The
// returned context carries a logger built from the merged settings.
func loadRunConfig(ctx context.Context, c *cli.Command) (context.Context, config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.Load(configFile)
	} else {
		cfg, err = config.LoadUser()
	}
	if err != nil {
		return ctx, cfg, err
	}

	root := c.Root()
	if root.IsSet("log-level") || cfg.Log.Level == "" {
		cfg.Log.Level = logLevel
	}
	if root.IsSet("log-format") || cfg.Log.Format == "" {
		cfg.Log.Format = logFormat
	}
	log, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return ctx, cfg, fmt.Errorf("log.level: %w", err)
	}
	return logger.WithContext(ctx, log), cfg, nil
}

func batcherConfig(b config.Batching) seqbatch.Config {
	return seqbatch.Config{
		Lanes:           b.Lanes,
		Window:          b.Window,
		RandomizeWindow: b.RandomWindow,
		FlattenTarget:   b.FlattenTarget,
		Seed:            b.Seed,
	}
}
