package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/onnxprep/internal/export"
)

// Config represents the onnxprep configuration file
// (~/.config/onnxprep/config.yaml). Values apply only when the matching flag
// was not set on the command line. Pointers distinguish "not set" from zero.
type Config struct {
	ModelID   string `yaml:"model_id"`
	OutputDir string `yaml:"output_dir"`

	// Export
	Task         string `yaml:"task"`
	Opset        *int   `yaml:"opset"`
	Device       string `yaml:"device"`
	Quantize     *bool  `yaml:"quantize"`
	QuantProfile string `yaml:"quant_profile"`
	PerChannel   *bool  `yaml:"per_channel"`
	OptimumCLI   string `yaml:"optimum_cli"`

	// Inspection
	ORTLibrary string `yaml:"ort_library"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "onnxprep", "config.yaml")
}

// LoadConfig reads the config file at path, or the default location when path
// is empty. A missing default file yields a zero Config; a missing explicit
// file or a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// exportOptions merges flags, config and defaults into export options.
func exportOptions(c *cli.Command, cfg Config) export.Options {
	opts := export.DefaultOptions()
	opts.ModelID = stringSetting(c, "model-id", cfg.ModelID)
	opts.OutputDir = resolveOutputDir(c.String("output"), cfg.OutputDir, opts.ModelID)
	opts.Task = stringSetting(c, "task", cfg.Task)
	opts.Device = stringSetting(c, "device", cfg.Device)
	opts.QuantProfile = stringSetting(c, "quant-profile", cfg.QuantProfile)
	opts.OptimumCLI = stringSetting(c, "optimum-cli", cfg.OptimumCLI)

	opts.Opset = c.Int("opset")
	if cfg.Opset != nil && !c.IsSet("opset") {
		opts.Opset = *cfg.Opset
	}
	opts.Quantize = !c.Bool("no-quantize")
	if cfg.Quantize != nil && !c.IsSet("no-quantize") {
		opts.Quantize = *cfg.Quantize
	}
	opts.PerChannel = c.Bool("per-channel")
	if cfg.PerChannel != nil && !c.IsSet("per-channel") {
		opts.PerChannel = *cfg.PerChannel
	}
	return opts
}

// modelDir resolves the model directory for commands that only read it.
func modelDir(c *cli.Command, cfg Config) string {
	return resolveOutputDir(c.String("output"), cfg.OutputDir, stringSetting(c, "model-id", cfg.ModelID))
}

func stringSetting(c *cli.Command, name, cfgVal string) string {
	if cfgVal != "" && !c.IsSet(name) {
		return cfgVal
	}
	return c.String(name)
}
