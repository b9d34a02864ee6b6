// Package tokfix rewrites the merge list of a HuggingFace tokenizer.json from
// pair form ([["a","b"], ...]) into the joined form (["a b", ...]) that
// transformers.js expects.
package tokfix

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

const mergesField = "model.merges"

// BackupSuffix is appended to the tokenizer path to form the backup path.
const BackupSuffix = ".bak"

// Form is the representation of a merge list.
type Form int

const (
	FormEmpty Form = iota
	FormPair
	FormJoined
	FormUnknown
)

func (f Form) String() string {
	switch f {
	case FormEmpty:
		return "empty"
	case FormPair:
		return "pair"
	case FormJoined:
		return "joined"
	default:
		return "unknown"
	}
}

// Outcome is what a fix run did (or would do) to the document.
type Outcome int

const (
	NothingToDo Outcome = iota
	Fixed
	AlreadyCorrect
	UnexpectedShape
)

func (o Outcome) String() string {
	switch o {
	case NothingToDo:
		return "nothing to do"
	case Fixed:
		return "fixed"
	case AlreadyCorrect:
		return "already correct"
	default:
		return "unexpected shape"
	}
}

// Result reports a single fix run.
type Result struct {
	Path       string
	BackupPath string
	Outcome    Outcome
	Form       Form
	Merges     int
	DryRun     bool

	// Shape is set when Outcome is UnexpectedShape.
	Shape *ShapeError
}

// Options controls FixFile.
type Options struct {
	// DryRun classifies the document without writing anything.
	DryRun bool
}

// BackupPath returns the sibling path the original document is saved to.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// DetectForm classifies a merge list by its first element.
func DetectForm(merges []json.RawMessage) Form {
	if len(merges) == 0 {
		return FormEmpty
	}
	switch kind(merges[0]) {
	case '[':
		return FormPair
	case '"':
		return FormJoined
	default:
		return FormUnknown
	}
}

// JoinPairs converts pair-form merges into joined form, preserving order.
// Tokens are joined with a single space; tokens that themselves contain a
// space are not detected.
func JoinPairs(merges []json.RawMessage) ([]string, error) {
	joined := make([]string, len(merges))
	for i, raw := range merges {
		if kind(raw) != '[' {
			return nil, &ShapeError{Field: mergesField, Index: i, Reason: "expected a two-element array, got " + describe(raw)}
		}
		var members []json.RawMessage
		if err := json.Unmarshal(raw, &members); err != nil {
			return nil, &ShapeError{Field: mergesField, Index: i, Reason: "malformed pair"}
		}
		if len(members) != 2 {
			return nil, &ShapeError{Field: mergesField, Index: i, Reason: fmt.Sprintf("expected 2 members, got %d", len(members))}
		}
		var pair [2]string
		for j, m := range members {
			// A null member would otherwise decode to "".
			if kind(m) != '"' {
				return nil, &ShapeError{Field: mergesField, Index: i, Reason: "pair members must be strings, got " + describe(m)}
			}
			if err := json.Unmarshal(m, &pair[j]); err != nil {
				return nil, &ShapeError{Field: mergesField, Index: i, Reason: "pair members must be strings"}
			}
		}
		joined[i] = pair[0] + " " + pair[1]
	}
	return joined, nil
}

// Fix inspects a tokenizer document and, when its merges are in pair form,
// returns the rewritten document. The returned bytes are nil for every
// outcome other than Fixed. A malformed document yields a *ParseError.
func Fix(data []byte) (Result, []byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return Result{}, nil, &ParseError{Err: err}
	}
	if doc == nil {
		return Result{}, nil, &ParseError{Err: errors.New("document is null, expected an object")}
	}

	rawModel, ok := doc["model"]
	if !ok || isNull(rawModel) {
		return Result{Outcome: NothingToDo, Form: FormEmpty}, nil, nil
	}
	if kind(rawModel) != '{' {
		return shapeResult(&ShapeError{Field: "model", Index: -1, Reason: "expected an object, got " + describe(rawModel)}), nil, nil
	}
	var model map[string]json.RawMessage
	if err := json.Unmarshal(rawModel, &model); err != nil {
		return Result{}, nil, &ParseError{Err: err}
	}

	rawMerges, ok := model["merges"]
	if !ok || isNull(rawMerges) {
		return Result{Outcome: NothingToDo, Form: FormEmpty}, nil, nil
	}
	if kind(rawMerges) != '[' {
		return shapeResult(&ShapeError{Field: mergesField, Index: -1, Reason: "expected an array, got " + describe(rawMerges)}), nil, nil
	}
	var merges []json.RawMessage
	if err := json.Unmarshal(rawMerges, &merges); err != nil {
		return Result{}, nil, &ParseError{Err: err}
	}

	res := Result{Form: DetectForm(merges), Merges: len(merges)}
	switch res.Form {
	case FormEmpty:
		res.Outcome = NothingToDo
		return res, nil, nil
	case FormJoined:
		res.Outcome = AlreadyCorrect
		return res, nil, nil
	case FormUnknown:
		res.Outcome = UnexpectedShape
		res.Shape = &ShapeError{Field: mergesField, Index: 0, Reason: "expected an array or string, got " + describe(merges[0])}
		return res, nil, nil
	}

	joined, err := JoinPairs(merges)
	if err != nil {
		var se *ShapeError
		if errors.As(err, &se) {
			res.Outcome = UnexpectedShape
			res.Shape = se
			return res, nil, nil
		}
		return Result{}, nil, err
	}

	if model["merges"], err = encode(joined, false); err != nil {
		return Result{}, nil, fmt.Errorf("tokfix: encode merges: %w", err)
	}
	// Re-encoding validates the carried-through values again, so a number
	// outside float64 range (valid JSON, e.g. 1e400) is rejected here.
	if doc["model"], err = encode(model, false); err != nil {
		return Result{}, nil, &ParseError{Err: fmt.Errorf("re-encode model: %w", err)}
	}
	out, err := encode(doc, true)
	if err != nil {
		return Result{}, nil, &ParseError{Err: fmt.Errorf("re-encode document: %w", err)}
	}
	res.Outcome = Fixed
	return res, out, nil
}

// FixFile applies Fix to the document at path. When the merges need
// rewriting, the original bytes are saved to BackupPath(path) before the
// rewritten document replaces path. Both writes overwrite existing files.
func FixFile(path string, opts Options) (Result, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("tokfix: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("tokfix: read %s: %w", path, err)
	}

	res, out, err := Fix(data)
	res.Path = path
	res.DryRun = opts.DryRun
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return res, err
	}
	if res.Outcome != Fixed || opts.DryRun {
		return res, nil
	}

	res.BackupPath = BackupPath(path)
	if err := os.WriteFile(res.BackupPath, data, st.Mode().Perm()); err != nil {
		return res, fmt.Errorf("tokfix: write backup: %w", err)
	}
	if err := writeFileAtomic(path, out, st.Mode().Perm()); err != nil {
		return res, fmt.Errorf("tokfix: write %s: %w", path, err)
	}
	return res, nil
}

func shapeResult(se *ShapeError) Result {
	return Result{Outcome: UnexpectedShape, Form: FormUnknown, Shape: se}
}

func encode(v any, indent bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if !indent {
		return bytes.TrimRight(buf.Bytes(), "\n"), nil
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, perm); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

func kind(raw []byte) byte {
	raw = bytes.TrimLeft(raw, " \t\r\n")
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

func isNull(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func describe(raw []byte) string {
	switch kind(raw) {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	case 0:
		return "nothing"
	default:
		return "number"
	}
}
