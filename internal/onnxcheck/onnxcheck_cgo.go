//go:build cgo

package onnxcheck

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var initMu sync.Mutex

// Inspect loads modelPath with the ONNX Runtime library at libPath, reads its
// input and output metadata and opens a session to prove the graph loads.
// An empty libPath leaves the runtime's default library name in place.
func Inspect(libPath, modelPath string) (Report, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return Report{}, fmt.Errorf("onnxcheck: %w", err)
	}
	if err := initRuntime(libPath); err != nil {
		return Report{}, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return Report{}, fmt.Errorf("onnxcheck: read model metadata: %w", err)
	}
	rep := Report{
		ModelPath: modelPath,
		Inputs:    convert(inputs),
		Outputs:   convert(outputs),
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, rep.InputNames(), rep.OutputNames(), nil)
	if err != nil {
		return rep, fmt.Errorf("onnxcheck: open session: %w", err)
	}
	if err := session.Destroy(); err != nil {
		return rep, fmt.Errorf("onnxcheck: close session: %w", err)
	}
	return rep, nil
}

func initRuntime(libPath string) error {
	initMu.Lock()
	defer initMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnxcheck: initialize onnx runtime: %w", err)
	}
	return nil
}

func convert(infos []ort.InputOutputInfo) []Tensor {
	out := make([]Tensor, len(infos))
	for i, info := range infos {
		out[i] = Tensor{
			Name:     info.Name,
			DataType: fmt.Sprint(info.DataType),
			Shape:    info.Dimensions.String(),
		}
	}
	return out
}
