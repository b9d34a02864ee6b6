package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/onnxprep/internal/logger"
	"github.com/samcharles93/onnxprep/internal/onnxcheck"
	"github.com/samcharles93/onnxprep/internal/tokfix"
)

// inspectModel is a seam for tests.
var inspectModel = onnxcheck.Inspect

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Check that the prepared model and tokenizer load",
		Flags: append(modelFlags(),
			&cli.StringFlag{
				Name:  "ort-lib",
				Usage: "path to the ONNX Runtime shared library (default: $" + onnxcheck.EnvLibrary + ")",
			},
			&cli.StringFlag{
				Name:  "tokenizer",
				Usage: "path to tokenizer.json (default: <output>/tokenizer.json)",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := modelDir(cmd, appConfig)
			lib := onnxcheck.ResolveLibrary(stringSetting(cmd, "ort-lib", appConfig.ORTLibrary))
			tok := resolveTokenizerPath(cmd.String("tokenizer"), dir)
			return finish("inspect", runInspect(ctx, stdout, onnxModelPath(dir), tok, lib))
		},
	}
}

func runInspect(ctx context.Context, w io.Writer, modelPath, tokPath, lib string) error {
	log := logger.FromContext(ctx)

	st, err := os.Stat(modelPath)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Model: %s (%s)\n", modelPath, humanize.Bytes(uint64(st.Size())))

	rep, err := inspectModel(lib, modelPath)
	switch {
	case errors.Is(err, onnxcheck.ErrUnavailable):
		log.Warn("skipping ONNX load check", "err", err)
	case err != nil:
		return err
	default:
		for _, t := range rep.Inputs {
			_, _ = fmt.Fprintf(w, "  input  %-20s %-8s %s\n", t.Name, t.DataType, t.Shape)
		}
		for _, t := range rep.Outputs {
			_, _ = fmt.Fprintf(w, "  output %-20s %-8s %s\n", t.Name, t.DataType, t.Shape)
		}
	}

	vr, err := tokfix.Verify(tokPath)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Tokenizer: %s (vocab=%d, probe=%d tokens)\n", tokPath, vr.VocabSize, vr.ProbeTokens)
	return nil
}
