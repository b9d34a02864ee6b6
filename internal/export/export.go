// Package export produces a quantized ONNX model laid out for transformers.js
// by delegating export and quantization to optimum-cli.
package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/samcharles93/onnxprep/internal/dirlock"
	"github.com/samcharles93/onnxprep/internal/logger"
)

// Result describes the artifact left on disk.
type Result struct {
	Dir       string
	ModelPath string // empty when the exporter produced no model.onnx
	Quantized bool
	SizeBytes int64

	// QuantizeErr is the recovered quantization failure, if any.
	QuantizeErr error
}

type Exporter struct {
	opts     Options
	runner   Runner
	lookPath func(string) (string, error)
}

// New returns an Exporter. A nil runner runs real subprocesses.
func New(opts Options, runner Runner) *Exporter {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Exporter{opts: opts, runner: runner, lookPath: exec.LookPath}
}

// CheckDependencies reports ErrDependency when optimum-cli cannot be found.
func (e *Exporter) CheckDependencies() error {
	if _, err := e.lookPath(e.opts.OptimumCLI); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDependency, e.opts.OptimumCLI, err)
	}
	return nil
}

// Run clears the output directory, exports, quantizes when enabled and moves
// the model into its subdirectory. Only export failures abort the run; a
// quantization failure falls back to the full-precision model.
func (e *Exporter) Run(ctx context.Context) (Result, error) {
	if err := e.opts.Validate(); err != nil {
		return Result{}, err
	}
	out := filepath.Clean(e.opts.OutputDir)
	log := logger.FromContext(ctx).With("model", e.opts.ModelID)
	res := Result{Dir: out}

	lock, err := dirlock.Acquire(out)
	if err != nil {
		return res, err
	}
	defer func() { _ = lock.Release() }()

	if err := os.RemoveAll(out); err != nil {
		return res, fmt.Errorf("export: clear %s: %w", out, err)
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return res, fmt.Errorf("export: create %s: %w", out, err)
	}

	log.Info("exporting to ONNX", "output", out, "task", e.opts.Task, "opset", e.opts.Opset, "device", e.opts.Device)
	if err := e.runner.Run(ctx, e.opts.OptimumCLI, e.exportArgs(out)...); err != nil {
		return res, &ExportError{ModelID: e.opts.ModelID, Err: err}
	}

	if e.opts.Quantize {
		log.Info("quantizing model", "profile", e.opts.QuantProfile, "per_channel", e.opts.PerChannel)
		if err := e.quantize(ctx, out); err != nil {
			res.QuantizeErr = err
			log.Warn("quantization failed, using full-precision model", "err", err)
		} else {
			res.Quantized = true
		}
	}

	path, err := relocate(out, e.opts.SubDir)
	if err != nil {
		return res, fmt.Errorf("export: relocate model: %w", err)
	}
	if path == "" {
		log.Warn("exporter produced no model file", "want", filepath.Join(out, ModelFileName))
		return res, nil
	}
	res.ModelPath = path
	if st, err := os.Stat(path); err == nil {
		res.SizeBytes = st.Size()
	}
	return res, nil
}

func (e *Exporter) exportArgs(out string) []string {
	return []string{
		"export", "onnx",
		"--model", e.opts.ModelID,
		"--task", e.opts.Task,
		"--opset", strconv.Itoa(e.opts.Opset),
		"--device", e.opts.Device,
		out,
	}
}

func (e *Exporter) quantizeArgs(in, out string) []string {
	args := []string{"onnxruntime", "quantize", "--onnx_model", in, "--" + e.opts.QuantProfile}
	if e.opts.PerChannel {
		args = append(args, "--per_channel")
	}
	return append(args, "-o", out)
}

// quantize writes into a scratch directory inside out and, on success,
// replaces out/model.onnx with the quantized file.
func (e *Exporter) quantize(ctx context.Context, out string) error {
	scratch := filepath.Join(out, ".quantize-"+uuid.NewString())
	defer func() { _ = os.RemoveAll(scratch) }()

	if err := e.runner.Run(ctx, e.opts.OptimumCLI, e.quantizeArgs(out, scratch)...); err != nil {
		return &QuantizeError{Profile: e.opts.QuantProfile, Err: err}
	}
	src := filepath.Join(scratch, QuantizedFileName)
	if _, err := os.Stat(src); err != nil {
		return &QuantizeError{Profile: e.opts.QuantProfile, Err: fmt.Errorf("no quantized model produced: %w", err)}
	}
	if err := os.Rename(src, filepath.Join(out, ModelFileName)); err != nil {
		return &QuantizeError{Profile: e.opts.QuantProfile, Err: err}
	}
	return nil
}

// relocate moves out/model.onnx to out/subDir/model.onnx and returns the new
// path, or "" when there is nothing to move.
func relocate(out, subDir string) (string, error) {
	dir := filepath.Join(out, subDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	src := filepath.Join(out, ModelFileName)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	dst := filepath.Join(dir, ModelFileName)
	if err := os.Rename(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}
