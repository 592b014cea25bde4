package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lanetrain/internal/logger"
)

func main() {
	app := &cli.Command{
		Name:  "lanetrain",
		Usage: "Train small language models on randomized lane batches",
		Flags: append(loggingFlags(), configFlag()),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log, err := newLogger(logLevel, logFormat)
			if err != nil {
				return ctx, err
			}
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			trainCmd(),
			evalCmd(),
			batchesCmd(),
			packCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the stderr logger. --debug overrides level.
func newLogger(level, format string) (logger.Logger, error) {
	if debug {
		level = "debug"
	}
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logger.FromFormat(os.Stderr, format, lvl), nil
}
