package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lanetrain/internal/config"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	lanes       int64
	window      int64
	fixedWindow bool
	batchSeed   int64
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Usage:       "path to a run config file (default: user config dir)",
		Destination: &configFile,
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func batchingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "lanes",
			Aliases:     []string{"split-size"},
			Usage:       "number of parallel substreams per batch",
			Destination: &lanes,
		},
		&cli.Int64Flag{
			Name:        "window",
			Aliases:     []string{"bptt"},
			Usage:       "base number of rows per batch",
			Destination: &window,
		},
		&cli.BoolFlag{
			Name:        "fixed-window",
			Usage:       "use the base window for every batch instead of sampling it",
			Destination: &fixedWindow,
		},
		&cli.Int64Flag{
			Name:        "batch-seed",
			Usage:       "seed for the window sampler",
			Destination: &batchSeed,
		},
	}
}

// applyBatchingFlags overrides cfg with the batching flags the user set.
func applyBatchingFlags(c *cli.Command, cfg *config.Batching) {
	if c.IsSet("lanes") {
		cfg.Lanes = int(lanes)
	}
	if c.IsSet("window") {
		cfg.Window = int(window)
	}
	if c.IsSet("fixed-window") {
		cfg.RandomWindow = !fixedWindow
	}
	if c.IsSet("batch-seed") {
		cfg.Seed = uint64(batchSeed)
	}
}
