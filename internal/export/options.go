package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	DefaultModelID      = "cross-encoder/quora-distilroberta-base"
	DefaultTask         = "text-classification"
	DefaultOpset        = 14
	DefaultDevice       = "cpu"
	DefaultQuantProfile = "avx2"
	DefaultSubDir       = "onnx"
	DefaultOptimumCLI   = "optimum-cli"

	ModelFileName     = "model.onnx"
	QuantizedFileName = "model_quantized.onnx"
)

// QuantProfiles are the hardware targets accepted by the quantizer.
var QuantProfiles = []string{"arm64", "avx2", "avx512", "avx512_vnni"}

// Options configures an export run.
type Options struct {
	ModelID   string
	OutputDir string
	Task      string
	Opset     int
	Device    string

	Quantize     bool
	QuantProfile string
	PerChannel   bool

	// SubDir is where the final model.onnx is placed, relative to OutputDir.
	SubDir string

	OptimumCLI string
}

// DefaultOutputDir is the directory a model is exported to when none is given.
func DefaultOutputDir(modelID string) string {
	return filepath.Join("models", filepath.FromSlash(modelID))
}

func DefaultOptions() Options {
	return Options{
		ModelID:      DefaultModelID,
		OutputDir:    DefaultOutputDir(DefaultModelID),
		Task:         DefaultTask,
		Opset:        DefaultOpset,
		Device:       DefaultDevice,
		Quantize:     true,
		QuantProfile: DefaultQuantProfile,
		SubDir:       DefaultSubDir,
		OptimumCLI:   DefaultOptimumCLI,
	}
}

func (o Options) Validate() error {
	if strings.TrimSpace(o.ModelID) == "" {
		return fmt.Errorf("export: model id is required")
	}
	out := filepath.Clean(strings.TrimSpace(o.OutputDir))
	if out == "." || out == string(filepath.Separator) || strings.TrimSpace(o.OutputDir) == "" {
		return fmt.Errorf("export: refusing to clear output directory %q", o.OutputDir)
	}
	if o.Opset < 1 {
		return fmt.Errorf("export: invalid opset %d", o.Opset)
	}
	if strings.TrimSpace(o.Task) == "" || strings.TrimSpace(o.Device) == "" {
		return fmt.Errorf("export: task and device are required")
	}
	if strings.TrimSpace(o.SubDir) == "" || filepath.IsAbs(o.SubDir) {
		return fmt.Errorf("export: invalid model subdirectory %q", o.SubDir)
	}
	if strings.TrimSpace(o.OptimumCLI) == "" {
		return fmt.Errorf("export: optimum-cli path is required")
	}
	if o.Quantize && !validProfile(o.QuantProfile) {
		return fmt.Errorf("export: unknown quantization profile %q (want one of %s)",
			o.QuantProfile, strings.Join(QuantProfiles, ", "))
	}
	return nil
}

func validProfile(p string) bool {
	for _, known := range QuantProfiles {
		if p == known {
			return true
		}
	}
	return false
}
