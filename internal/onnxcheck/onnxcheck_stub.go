//go:build !cgo

package onnxcheck

import "fmt"

// Inspect returns ErrUnavailable for builds without CGO enabled.
func Inspect(_, _ string) (Report, error) {
	return Report{}, fmt.Errorf("%w: build requires CGO_ENABLED=1", ErrUnavailable)
}
