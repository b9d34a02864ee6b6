package export

import (
	"errors"
	"fmt"
)

// InstallHint tells the operator how to obtain the export toolchain.
const InstallHint = `pip install "optimum-onnx[onnxruntime]"`

// ErrDependency means the external toolchain is not installed.
var ErrDependency = errors.New("export: required tooling not found")

// ExportError wraps a failed export step. It aborts the run.
type ExportError struct {
	ModelID string
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export: export %s: %v", e.ModelID, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// QuantizeError wraps a failed quantization step. The run continues with the
// full-precision model.
type QuantizeError struct {
	Profile string
	Err     error
}

func (e *QuantizeError) Error() string {
	return fmt.Sprintf("export: quantize (%s): %v", e.Profile, e.Err)
}

func (e *QuantizeError) Unwrap() error { return e.Err }
