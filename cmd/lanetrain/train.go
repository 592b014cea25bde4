package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lanetrain/internal/api"
	"github.com/samcharles93/lanetrain/internal/config"
	"github.com/samcharles93/lanetrain/internal/logger"
	"github.com/samcharles93/lanetrain/internal/optim"
	"github.com/samcharles93/lanetrain/internal/seqbatch"
	"github.com/samcharles93/lanetrain/internal/tensor"
	"github.com/samcharles93/lanetrain/internal/tokenstore"
	"github.com/samcharles93/lanetrain/internal/toy"
	"github.com/samcharles93/lanetrain/internal/train"
)

func trainCmd() *cli.Command {
	var (
		trainPath     string
		validPath     string
		validFraction float64
		epochs        int64
		alpha         float64
		optimName     string
		learningRate  float64
		momentum      float64
		weightDecay   float64
		gradClip      float64
		scheduleName  string
		warmup        int64
		vocab         int64
		hidden        int64
		modelSeed     int64
		checkpoint    string
		historyPath   string
		patience      int64
		minDelta      float64
		logEvery      int64
		statusAddr    string
	)

	flags := []cli.Flag{
		&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "training corpus (.tok or whitespace-separated .txt ids)", Destination: &trainPath},
		&cli.StringFlag{Name: "valid", Usage: "validation corpus; when empty a tail of --data is held out", Destination: &validPath},
		&cli.Float64Flag{Name: "valid-fraction", Usage: "fraction of --data held out for validation", Destination: &validFraction},
		&cli.Int64Flag{Name: "epochs", Aliases: []string{"e"}, Usage: "number of epochs", Destination: &epochs},
		&cli.Float64Flag{Name: "alpha", Usage: "running loss smoothing weight in [0, 1)", Destination: &alpha},
		&cli.StringFlag{Name: "optimizer", Usage: "optimizer (sgd, adamw)", Destination: &optimName},
		&cli.Float64Flag{Name: "lr", Usage: "learning rate", Destination: &learningRate},
		&cli.Float64Flag{Name: "momentum", Usage: "SGD momentum", Destination: &momentum},
		&cli.Float64Flag{Name: "weight-decay", Usage: "weight decay", Destination: &weightDecay},
		&cli.Float64Flag{Name: "grad-clip", Usage: "global gradient norm cap (0 disables)", Destination: &gradClip},
		&cli.StringFlag{Name: "schedule", Usage: "learning-rate schedule (constant, cosine)", Destination: &scheduleName},
		&cli.Int64Flag{Name: "warmup", Usage: "warmup steps for the cosine schedule", Destination: &warmup},
		&cli.Int64Flag{Name: "vocab", Usage: "vocabulary size (0 sizes from the data)", Destination: &vocab},
		&cli.Int64Flag{Name: "hidden", Usage: "embedding width", Destination: &hidden},
		&cli.Int64Flag{Name: "model-seed", Usage: "seed for weight initialisation", Destination: &modelSeed},
		&cli.StringFlag{Name: "checkpoint", Usage: "save the best model (by validation loss) here", Destination: &checkpoint},
		&cli.StringFlag{Name: "history", Usage: "write per-epoch losses as JSON here", Destination: &historyPath},
		&cli.Int64Flag{Name: "patience", Usage: "stop after this many epochs without improvement (0 disables)", Destination: &patience},
		&cli.Float64Flag{Name: "min-delta", Usage: "smallest loss decrease that counts as improvement", Destination: &minDelta},
		&cli.Int64Flag{Name: "log-every", Usage: "log training progress every N batches (0 disables)", Destination: &logEvery},
		&cli.StringFlag{Name: "status-addr", Usage: "serve run status over HTTP on this address", Destination: &statusAddr},
	}

	return &cli.Command{
		Name:  "train",
		Usage: "Train a bigram language model",
		Flags: append(flags, batchingFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, cfg, err := loadRunConfig(ctx, c)
			if err != nil {
				return err
			}

			if c.IsSet("data") {
				cfg.Data.Train = trainPath
			}
			if c.IsSet("valid") {
				cfg.Data.Valid = validPath
			}
			if c.IsSet("valid-fraction") {
				cfg.Data.ValidFraction = validFraction
			}
			if c.IsSet("epochs") {
				cfg.Loop.Epochs = int(epochs)
			}
			if c.IsSet("alpha") {
				cfg.Loop.Alpha = alpha
			}
			if c.IsSet("optimizer") {
				cfg.Optimizer.Name = optimName
			}
			if c.IsSet("lr") {
				cfg.Optimizer.LR = learningRate
			}
			if c.IsSet("momentum") {
				cfg.Optimizer.Momentum = momentum
			}
			if c.IsSet("weight-decay") {
				cfg.Optimizer.WeightDecay = weightDecay
			}
			if c.IsSet("grad-clip") {
				cfg.Optimizer.GradClip = gradClip
			}
			if c.IsSet("schedule") {
				cfg.Schedule.Name = scheduleName
			}
			if c.IsSet("warmup") {
				cfg.Schedule.Warmup = int(warmup)
			}
			if c.IsSet("vocab") {
				cfg.Model.Vocab = int(vocab)
			}
			if c.IsSet("hidden") {
				cfg.Model.Hidden = int(hidden)
			}
			if c.IsSet("model-seed") {
				cfg.Model.Seed = modelSeed
			}
			if c.IsSet("checkpoint") {
				cfg.Callbacks.Checkpoint = checkpoint
			}
			if c.IsSet("history") {
				cfg.Callbacks.History = historyPath
			}
			if c.IsSet("patience") {
				cfg.Callbacks.Patience = int(patience)
			}
			if c.IsSet("min-delta") {
				cfg.Callbacks.MinDelta = minDelta
			}
			if c.IsSet("log-every") {
				cfg.Callbacks.LogEvery = int(logEvery)
			}
			if c.IsSet("status-addr") {
				cfg.Status.Addr = statusAddr
			}
			applyBatchingFlags(c, &cfg.Batching)

			if cfg.Data.Train == "" {
				return errors.New("no training data: pass --data or set data.train in the config")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runTraining(ctx, cfg)
		},
	}
}

func runTraining(ctx context.Context, cfg config.Config) error {
	runID := uuid.NewString()
	log := logger.FromContext(ctx).With("run", runID)

	trainIDs, validIDs, err := loadCorpus(cfg.Data)
	if err != nil {
		return err
	}
	vocab := tokenstore.VocabSize(trainIDs, validIDs)
	if cfg.Model.Vocab > 0 {
		if cfg.Model.Vocab < vocab {
			return fmt.Errorf("model.vocab %d is smaller than the data requires (%d)", cfg.Model.Vocab, vocab)
		}
		vocab = cfg.Model.Vocab
	}

	trainBatches, err := seqbatch.New(trainIDs, batcherConfig(cfg.Batching))
	if err != nil {
		return err
	}
	if trainBatches.MaxIterations() == 0 {
		return fmt.Errorf("training corpus of %d tokens is too short for %d lanes with window %d",
			len(trainIDs), cfg.Batching.Lanes, cfg.Batching.Window)
	}
	var validSrc iter.Seq2[tensor.Tokens, tensor.Tokens]
	if len(validIDs) > 0 {
		vc := batcherConfig(cfg.Batching)
		vc.Seed++
		validBatches, err := seqbatch.New(validIDs, vc)
		if err != nil {
			return err
		}
		validSrc = validBatches.All()
	}

	model := toy.NewLM(vocab, cfg.Model.Hidden, cfg.Model.Seed)
	opt, err := optim.New(optim.Settings{
		Name:        cfg.Optimizer.Name,
		LR:          cfg.Optimizer.LR,
		Momentum:    cfg.Optimizer.Momentum,
		WeightDecay: cfg.Optimizer.WeightDecay,
		GradClip:    cfg.Optimizer.GradClip,
	}, model.Params())
	if err != nil {
		return err
	}
	totalSteps := cfg.Loop.Epochs * trainBatches.MaxIterations()
	sched, err := optim.NewSchedule(cfg.Schedule.Name, opt, cfg.Schedule.Warmup, totalSteps)
	if err != nil {
		return err
	}
	stepper := train.NewStepper[tensor.Tokens, tensor.Tokens, *toy.Logits](model, opt, sched, toy.CrossEntropy{})

	history := train.NewHistory(cfg.Callbacks.History)
	history.RunID = runID
	callbacks := []train.Callback{
		train.NewProgressLogger(log, cfg.Callbacks.LogEvery),
		history,
	}
	var ckpt *train.Checkpoint
	if cfg.Callbacks.Checkpoint != "" {
		ckpt = train.NewCheckpoint(cfg.Callbacks.Checkpoint, log)
		if validSrc == nil {
			ckpt.Phase = train.PhaseTrain
		}
		callbacks = append(callbacks, ckpt)
	}
	if cfg.Callbacks.Patience > 0 {
		es := train.NewEarlyStopping(cfg.Callbacks.Patience, cfg.Callbacks.MinDelta)
		if validSrc == nil {
			es.Phase = train.PhaseTrain
		}
		callbacks = append(callbacks, es)
	}
	if cfg.Status.Addr != "" {
		tracker := api.NewTracker(runID, cfg.Loop.Epochs)
		callbacks = append(callbacks, tracker)

		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		e := api.NewEcho(tracker)
		go func() {
			if err := api.Serve(srvCtx, cfg.Status.Addr, e); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server failed", "addr", cfg.Status.Addr, "error", err)
			}
		}()
		log.Info("status server listening", "addr", cfg.Status.Addr)
	}

	log.Info("starting run",
		"train_tokens", len(trainIDs),
		"valid_tokens", len(validIDs),
		"vocab", vocab,
		"lines", trainBatches.Lines(),
		"max_iterations", trainBatches.MaxIterations(),
		"optimizer", cfg.Optimizer.Name,
		"schedule", cfg.Schedule.Name,
	)

	loop := train.NewLoop[tensor.Tokens, tensor.Tokens](stepper,
		train.WithAlpha(cfg.Loop.Alpha),
		train.WithLogger(log),
	)
	err = loop.Run(ctx, trainBatches.All(), validSrc, cfg.Loop.Epochs, callbacks...)
	switch {
	case errors.Is(err, context.Canceled):
		log.Warn("training interrupted")
	case err != nil:
		return err
	}

	if s, ok := history.Summary(train.PhaseTrain); ok {
		log.Info("train summary", "epochs", s.Epochs, "mean_loss", s.MeanLoss, "best_loss", s.BestLoss, "best_epoch", s.BestEpoch)
	}
	if s, ok := history.Summary(train.PhaseValid); ok {
		log.Info("valid summary", "epochs", s.Epochs, "mean_loss", s.MeanLoss, "best_loss", s.BestLoss, "best_epoch", s.BestEpoch)
	}
	if err := history.Err(); err != nil {
		log.Warn("history not written", "error", err)
	}
	if ckpt != nil && ckpt.Err() != nil {
		return fmt.Errorf("checkpoint: %w", ckpt.Err())
	}
	return nil
}

// loadCorpus reads the training stream and either the validation file or
// a held-out tail of the training stream.
func loadCorpus(d config.Data) (trainIDs, validIDs []int32, err error) {
	trainIDs, err = tokenstore.Load(d.Train)
	if err != nil {
		return nil, nil, err
	}
	if d.Valid != "" {
		validIDs, err = tokenstore.Load(d.Valid)
		if err != nil {
			return nil, nil, err
		}
		return trainIDs, validIDs, nil
	}
	return tokenstore.Split(trainIDs, d.ValidFraction)
}
