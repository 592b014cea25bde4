package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lanetrain/internal/seqbatch"
	"github.com/samcharles93/lanetrain/internal/tokenstore"
)

func batchesCmd() *cli.Command {
	var (
		dataPath string
		limit    int64
		noFlat   bool
	)
	return &cli.Command{
		Name:  "batches",
		Usage: "Show how a corpus is cut into batches",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "corpus (.tok or .txt)", Required: true, Destination: &dataPath},
			&cli.Int64Flag{Name: "limit", Aliases: []string{"n"}, Usage: "number of batches to print (0 prints all)", Value: 5, Destination: &limit},
			&cli.BoolFlag{Name: "no-flatten", Usage: "keep targets as a matrix", Destination: &noFlat},
		}, batchingFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			_, cfg, err := loadRunConfig(ctx, c)
			if err != nil {
				return err
			}
			applyBatchingFlags(c, &cfg.Batching)
			if c.IsSet("no-flatten") {
				cfg.Batching.FlattenTarget = !noFlat
			}

			ids, err := tokenstore.Load(dataPath)
			if err != nil {
				return err
			}
			b, err := seqbatch.New(ids, batcherConfig(cfg.Batching))
			if err != nil {
				return err
			}

			fmt.Printf("tokens:         %d\n", len(ids))
			fmt.Printf("lanes:          %d\n", b.Lanes())
			fmt.Printf("lines:          %d\n", b.Lines())
			fmt.Printf("max iterations: %d\n", b.MaxIterations())

			for n := 0; limit <= 0 || n < int(limit); n++ {
				batch, err := b.Next()
				if errors.Is(err, seqbatch.ErrExhausted) {
					break
				}
				if err != nil {
					return err
				}
				line, it := b.Progress()
				fmt.Printf("batch %3d: input %dx%d target %dx%d next line %d iteration %d\n",
					n, batch.Input.R, batch.Input.C, batch.Target.R, batch.Target.C, line, it)
				if n == 0 {
					fmt.Printf("  input row 0:  %v\n", batch.Input.Row(0))
					fmt.Printf("  target row 0: %v\n", head(batch.Target.Row(0), b.Lanes()))
				}
			}
			return nil
		},
	}
}

func head(ids []int32, n int) []int32 {
	if len(ids) > n {
		return ids[:n]
	}
	return ids
}
