package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/onnxprep/internal/export"
	"github.com/samcharles93/onnxprep/internal/logger"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	// appConfig is loaded once in setup.
	appConfig Config
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: $XDG_CONFIG_HOME/onnxprep/config.yaml)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging, including external tool output",
			Destination: &debug,
		},
	}
}

// modelFlags selects the model and where its files live.
func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "model-id",
			Aliases: []string{"m"},
			Usage:   "pretrained model identifier",
			Value:   export.DefaultModelID,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"out", "o"},
			Usage:   "model directory (default: models/<model-id>, or $" + envOutputDir + ")",
		},
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "task", Usage: "export task", Value: export.DefaultTask},
		&cli.IntFlag{Name: "opset", Usage: "ONNX opset version", Value: export.DefaultOpset},
		&cli.StringFlag{Name: "device", Usage: "device used for export", Value: export.DefaultDevice},
		&cli.BoolFlag{Name: "no-quantize", Usage: "keep the full-precision model"},
		&cli.StringFlag{
			Name:  "quant-profile",
			Usage: "quantization target (" + strings.Join(export.QuantProfiles, ", ") + ")",
			Value: export.DefaultQuantProfile,
		},
		&cli.BoolFlag{Name: "per-channel", Usage: "quantize weights per channel"},
		&cli.StringFlag{Name: "optimum-cli", Usage: "optimum-cli executable", Value: export.DefaultOptimumCLI},
	}
}

func tokenizerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "tokenizer",
			Usage: "path to tokenizer.json (default: <output>/tokenizer.json)",
		},
		&cli.BoolFlag{Name: "dry-run", Usage: "report what would change without writing"},
		&cli.BoolFlag{Name: "verify", Usage: "load the tokenizer after fixing and encode a probe sentence"},
	}
}

// setup loads the config file and installs the logger in the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	appConfig = cfg

	level := logLevel
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		level = cfg.LogLevel
	}
	if debug {
		level = "debug"
	}
	format := logFormat
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		format = cfg.LogFormat
	}

	log, err := logger.Build(os.Stderr, format, level, useColor(os.Stderr))
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	log = log.With("run", uuid.NewString()[:8])
	return logger.WithContext(ctx, log), nil
}

func useColor(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) != 0
}
