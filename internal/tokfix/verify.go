package tokfix

import (
	"fmt"

	"github.com/sugarme/tokenizer/pretrained"
)

// VerifyProbe is the sentence encoded by Verify.
const VerifyProbe = "How do I learn to write idiomatic Go?"

// VerifyReport summarises a tokenizer that loaded successfully.
type VerifyReport struct {
	VocabSize   int
	Probe       string
	ProbeTokens int
}

// Verify loads the tokenizer at path with a pure-Go HuggingFace loader and
// encodes VerifyProbe. The loader only understands joined-form merges, so a
// document still in pair form fails here.
func Verify(path string) (VerifyReport, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return VerifyReport{}, fmt.Errorf("tokfix: load tokenizer %s: %w", path, err)
	}
	enc, err := tk.EncodeSingle(VerifyProbe, true)
	if err != nil {
		return VerifyReport{}, fmt.Errorf("tokfix: encode probe: %w", err)
	}
	return VerifyReport{
		VocabSize:   tk.GetVocabSize(true),
		Probe:       VerifyProbe,
		ProbeTokens: len(enc.Ids),
	}, nil
}
