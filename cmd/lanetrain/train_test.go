package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/samcharles93/lanetrain/internal/config"
	"github.com/samcharles93/lanetrain/internal/logger"
	"github.com/samcharles93/lanetrain/internal/tokenstore"
	"github.com/samcharles93/lanetrain/internal/toy"
)

func writeCorpus(t *testing.T, dir string, n int) string {
	t.Helper()
	var sb strings.Builder
	for i := range n {
		sb.WriteString(strconv.Itoa(i % 8))
		sb.WriteByte(' ')
	}
	path := filepath.Join(dir, "corpus.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCorpusSplitsTail(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeCorpus(t, dir, 100)

	trainIDs, validIDs, err := loadCorpus(config.Data{Train: path, ValidFraction: 0.2})
	if err != nil {
		t.Fatalf("loadCorpus: %v", err)
	}
	if len(trainIDs) != 80 || len(validIDs) != 20 {
		t.Fatalf("split %d/%d, want 80/20", len(trainIDs), len(validIDs))
	}

	tok := filepath.Join(dir, "valid.tok")
	if err := tokenstore.Write(tok, []int32{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	trainIDs, validIDs, err = loadCorpus(config.Data{Train: path, Valid: tok, ValidFraction: 0.2})
	if err != nil {
		t.Fatalf("loadCorpus: %v", err)
	}
	if len(trainIDs) != 100 || len(validIDs) != 3 {
		t.Fatalf("explicit valid file ignored: %d/%d", len(trainIDs), len(validIDs))
	}
}

func TestRunTrainingWritesArtifacts(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Data.Train = writeCorpus(t, dir, 800)
	cfg.Batching.Lanes = 4
	cfg.Batching.Window = 5
	cfg.Batching.RandomWindow = false
	cfg.Model.Hidden = 8
	cfg.Loop.Epochs = 2
	cfg.Callbacks.Checkpoint = filepath.Join(dir, "best.safetensors")
	cfg.Callbacks.History = filepath.Join(dir, "history.json")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	ctx := logger.WithContext(context.Background(), logger.Discard())
	if err := runTraining(ctx, cfg); err != nil {
		t.Fatalf("runTraining: %v", err)
	}

	m, err := toy.Load(cfg.Callbacks.Checkpoint)
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if m.Vocab != 8 || m.Hidden != 8 {
		t.Fatalf("checkpoint shape vocab=%d hidden=%d", m.Vocab, m.Hidden)
	}
	if _, err := os.Stat(cfg.Callbacks.History); err != nil {
		t.Fatalf("history not written: %v", err)
	}
}

func TestRunTrainingRejectsShortCorpus(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.Train = writeCorpus(t, dir, 50)

	ctx := logger.WithContext(context.Background(), logger.Discard())
	if err := runTraining(ctx, cfg); err == nil {
		t.Fatal("expected an error for a corpus shorter than one batch")
	}
}

func TestRunTrainingRejectsSmallVocab(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.Train = writeCorpus(t, dir, 800)
	cfg.Batching.Lanes = 4
	cfg.Model.Vocab = 4

	ctx := logger.WithContext(context.Background(), logger.Discard())
	err := runTraining(ctx, cfg)
	if err == nil || !strings.Contains(err.Error(), "model.vocab") {
		t.Fatalf("expected vocab error, got %v", err)
	}
}
