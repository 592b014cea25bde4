package main

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lanetrain/internal/logger"
	"github.com/samcharles93/lanetrain/internal/optim"
	"github.com/samcharles93/lanetrain/internal/seqbatch"
	"github.com/samcharles93/lanetrain/internal/tensor"
	"github.com/samcharles93/lanetrain/internal/tokenstore"
	"github.com/samcharles93/lanetrain/internal/toy"
	"github.com/samcharles93/lanetrain/internal/train"
)

func evalCmd() *cli.Command {
	var (
		weightsPath string
		dataPath    string
	)
	return &cli.Command{
		Name:  "eval",
		Usage: "Report the loss of a saved model on a token corpus",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "weights", Aliases: []string{"w"}, Usage: "model saved by train --checkpoint", Required: true, Destination: &weightsPath},
			&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "corpus to score (.tok or .txt)", Required: true, Destination: &dataPath},
		}, batchingFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, cfg, err := loadRunConfig(ctx, c)
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)

			// Evaluation uses the base window unless --fixed-window=false is
			// given explicitly, so repeated runs score identical batches.
			cfg.Batching.RandomWindow = false
			applyBatchingFlags(c, &cfg.Batching)
			if err := cfg.Validate(); err != nil {
				return err
			}

			model, err := toy.Load(weightsPath)
			if err != nil {
				return err
			}
			ids, err := tokenstore.Load(dataPath)
			if err != nil {
				return err
			}
			if need := tokenstore.VocabSize(ids); need > model.Vocab {
				return fmt.Errorf("corpus uses ids up to %d but the model vocabulary is %d", need-1, model.Vocab)
			}
			batches, err := seqbatch.New(ids, batcherConfig(cfg.Batching))
			if err != nil {
				return err
			}

			// The optimizer is never stepped in eval mode.
			opt, err := optim.New(optim.Settings{Name: "sgd"}, model.Params())
			if err != nil {
				return err
			}
			stepper := train.NewStepper[tensor.Tokens, tensor.Tokens, *toy.Logits](model, opt, optim.NewConstant(opt), toy.CrossEntropy{})

			res, err := train.Evaluate[tensor.Tokens, tensor.Tokens](ctx, stepper, batches.All(), cfg.Loop.Alpha)
			if err != nil {
				return err
			}
			if res.Batches == 0 {
				return errors.New("corpus too short to form a single batch")
			}
			log.Debug("evaluation done", "batches", res.Batches, "avg_loss", res.AvgLoss)
			fmt.Printf("batches:    %d\n", res.Batches)
			fmt.Printf("mean loss:  %.4f\n", res.MeanLoss)
			fmt.Printf("perplexity: %.2f\n", math.Exp(res.MeanLoss))
			return nil
		},
	}
}
