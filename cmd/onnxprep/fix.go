package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/onnxprep/internal/dirlock"
	"github.com/samcharles93/onnxprep/internal/logger"
	"github.com/samcharles93/onnxprep/internal/tokfix"
)

func fixTokenizerCmd() *cli.Command {
	return &cli.Command{
		Name:  "fix-tokenizer",
		Usage: "Rewrite tokenizer.json merges from pair form to joined form",
		Flags: append(modelFlags(), tokenizerFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := modelDir(cmd, appConfig)
			path := resolveTokenizerPath(cmd.String("tokenizer"), dir)
			opts := tokfix.Options{DryRun: cmd.Bool("dry-run")}
			return finish("fix-tokenizer", runFix(ctx, path, dir, opts, cmd.Bool("verify")))
		},
	}
}

// runFix fixes the tokenizer at path. A missing tokenizer is reported and is
// not an error. The model directory lock is only taken when path lives inside
// dir.
func runFix(ctx context.Context, path, dir string, opts tokfix.Options, verify bool) error {
	log := logger.FromContext(ctx).With("tokenizer", path)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		log.Warn("tokenizer not found")
		_, _ = fmt.Fprintf(stdout, "Tokenizer not found at %s\n", path)
		return nil
	}

	if within(path, dir) {
		lock, err := dirlock.Acquire(dir)
		switch {
		case errors.Is(err, dirlock.ErrLocked):
			return err
		case err != nil:
			log.Warn("could not lock model directory, continuing without it", "err", err)
		default:
			defer func() { _ = lock.Release() }()
		}
	}

	res, err := tokfix.FixFile(path, opts)
	if err != nil {
		return err
	}
	log.Debug("merges classified", "form", res.Form, "count", res.Merges)

	switch res.Outcome {
	case tokfix.Fixed:
		if res.DryRun {
			_, _ = fmt.Fprintf(stdout, "Would convert %d merges from pair to joined form\n", res.Merges)
			break
		}
		log.Info("original tokenizer backed up", "backup", res.BackupPath)
		_, _ = fmt.Fprintf(stdout, "Converted %d merges; fixed tokenizer saved to %s\n", res.Merges, res.Path)
	case tokfix.AlreadyCorrect:
		_, _ = fmt.Fprintln(stdout, "Merges already in joined form, no fix needed")
	case tokfix.NothingToDo:
		_, _ = fmt.Fprintln(stdout, "No merges found in tokenizer")
	case tokfix.UnexpectedShape:
		log.Warn("unexpected merges format, leaving tokenizer untouched", "err", res.Shape)
		_, _ = fmt.Fprintf(stdout, "Unexpected merges format: %v\n", res.Shape)
	}

	if !verify || res.DryRun {
		return nil
	}
	rep, err := tokfix.Verify(path)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Tokenizer loads: vocab=%d, probe=%d tokens\n", rep.VocabSize, rep.ProbeTokens)
	return nil
}

// within reports whether path is inside dir.
func within(path, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
