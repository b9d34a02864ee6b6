package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/samcharles93/onnxprep/internal/export"
)

const (
	envOutputDir = "ONNXPREP_OUTPUT_DIR"

	tokenizerFileName = "tokenizer.json"
)

// resolveOutputDir picks the model directory: flag, then $ONNXPREP_OUTPUT_DIR,
// then the config file, then models/<model-id>.
func resolveOutputDir(flagVal, cfgVal, modelID string) string {
	for _, v := range []string{flagVal, os.Getenv(envOutputDir), cfgVal} {
		if v = strings.TrimSpace(v); v != "" {
			return filepath.Clean(v)
		}
	}
	return export.DefaultOutputDir(modelID)
}

func resolveTokenizerPath(flagVal, outputDir string) string {
	if v := strings.TrimSpace(flagVal); v != "" {
		return filepath.Clean(v)
	}
	return filepath.Join(outputDir, tokenizerFileName)
}

func onnxModelPath(outputDir string) string {
	return filepath.Join(outputDir, export.DefaultSubDir, export.ModelFileName)
}
