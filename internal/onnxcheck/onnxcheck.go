// Package onnxcheck confirms that an exported model loads in ONNX Runtime and
// reports its inputs and outputs. It never runs inference.
package onnxcheck

import (
	"errors"
	"os"
	"strings"
)

// EnvLibrary names the environment variable holding the ONNX Runtime shared
// library path.
const EnvLibrary = "ONNXRUNTIME_LIB"

// ErrUnavailable is returned by builds without ONNX Runtime support.
var ErrUnavailable = errors.New("onnxcheck: onnx runtime support is not available in this build")

// Tensor describes one model input or output.
type Tensor struct {
	Name     string
	DataType string
	Shape    string
}

// Report is the result of Inspect.
type Report struct {
	ModelPath string
	Inputs    []Tensor
	Outputs   []Tensor
}

// InputNames lists the input names in model order.
func (r Report) InputNames() []string {
	return names(r.Inputs)
}

// OutputNames lists the output names in model order.
func (r Report) OutputNames() []string {
	return names(r.Outputs)
}

// ResolveLibrary picks the library path from flag, then EnvLibrary.
func ResolveLibrary(flag string) string {
	if p := strings.TrimSpace(flag); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(EnvLibrary))
}

func names(ts []Tensor) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Name
	}
	return out
}
