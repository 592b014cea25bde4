package main

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lanetrain/internal/logger"
	"github.com/samcharles93/lanetrain/internal/tokenstore"
)

func packCmd() *cli.Command {
	var (
		inPath  string
		outPath string
	)
	return &cli.Command{
		Name:  "pack",
		Usage: "Convert whitespace-separated token ids into a .tok file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "text file of token ids (- for stdin)", Value: "-", Destination: &inPath},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output .tok path", Required: true, Destination: &outPath},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log := logger.FromContext(ctx)

			var r io.Reader = os.Stdin
			if inPath != "-" {
				f, err := os.Open(inPath)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			ids, err := tokenstore.ParseText(r)
			if err != nil {
				return err
			}
			if err := tokenstore.Write(outPath, ids); err != nil {
				return err
			}
			log.Info("packed tokens", "count", len(ids), "vocab", tokenstore.VocabSize(ids), "path", outPath)
			return nil
		},
	}
}
