package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/onnxprep/internal/tokfix"
)

func prepareCmd() *cli.Command {
	return &cli.Command{
		Name:  "prepare",
		Usage: "Run convert, then fix-tokenizer on the same directory",
		Flags: append(append(modelFlags(), exportFlags()...), tokenizerFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := exportOptions(cmd, appConfig)
			if _, err := runConvert(ctx, opts); err != nil {
				return finish("convert", err)
			}
			path := resolveTokenizerPath(cmd.String("tokenizer"), opts.OutputDir)
			fixOpts := tokfix.Options{DryRun: cmd.Bool("dry-run")}
			return finish("fix-tokenizer", runFix(ctx, path, opts.OutputDir, fixOpts, cmd.Bool("verify")))
		},
	}
}
