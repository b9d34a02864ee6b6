package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/onnxprep/internal/export"
	"github.com/samcharles93/onnxprep/internal/tokfix"
)

// isFatal separates failures that end a run (missing tooling, a failed
// export, an unparseable tokenizer, I/O errors) from the recoverable ones
// (quantization, unrecognised merge shapes) that are logged and skipped.
func isFatal(err error) bool {
	if err == nil {
		return false
	}
	var qe *export.QuantizeError
	var se *tokfix.ShapeError
	return !errors.As(err, &qe) && !errors.As(err, &se)
}

// finish converts a command error into the process exit status.
func finish(op string, err error) error {
	if !isFatal(err) {
		return nil
	}
	if errors.Is(err, export.ErrDependency) {
		return cli.Exit(fmt.Sprintf("error: %v\n\nInstall dependencies with:\n  %s", err, export.InstallHint), 1)
	}
	return cli.Exit(fmt.Sprintf("error: %s: %v", op, err), 1)
}
