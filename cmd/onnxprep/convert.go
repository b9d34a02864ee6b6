package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/onnxprep/internal/export"
	"github.com/samcharles93/onnxprep/internal/logger"
)

// Seams for tests.
var (
	stdout            io.Writer = os.Stdout
	newRunner                   = func() export.Runner { return export.ExecRunner{} }
	checkDependencies           = (*export.Exporter).CheckDependencies
)

func convertCmd() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Export a pretrained model to quantized ONNX laid out for transformers.js",
		Description: "The output directory is deleted and recreated. Export and quantization are " +
			"delegated to optimum-cli; if quantization fails the full-precision model is kept.",
		Flags: append(modelFlags(), exportFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, err := runConvert(ctx, exportOptions(cmd, appConfig))
			return finish("convert", err)
		},
	}
}

func runConvert(ctx context.Context, opts export.Options) (export.Result, error) {
	log := logger.FromContext(ctx)

	e := export.New(opts, newRunner())
	if err := checkDependencies(e); err != nil {
		return export.Result{}, err
	}

	log.Info("converting model", "model", opts.ModelID, "output", opts.OutputDir)
	res, err := e.Run(ctx)
	if err != nil {
		return res, err
	}
	printConvertResult(stdout, res)
	return res, nil
}

func printConvertResult(w io.Writer, res export.Result) {
	if res.ModelPath != "" {
		precision := "full precision"
		if res.Quantized {
			precision = "int8 quantized"
		}
		_, _ = fmt.Fprintf(w, "Model: %s (%s, %s)\n", res.ModelPath, precision, humanize.Bytes(uint64(res.SizeBytes)))
	}
	if res.QuantizeErr != nil {
		_, _ = fmt.Fprintf(w, "Quantization failed: %v\nUsing full-precision model instead.\n", res.QuantizeErr)
	}
	_, _ = fmt.Fprintf(w, "Conversion complete. Model files are in: %s\n", res.Dir)
}
