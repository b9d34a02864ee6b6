package tokfix

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
)

func writeTokenizer(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write tokenizer: %v", err)
	}
	return path
}

func readMerges(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc struct {
		Model struct {
			Merges []string `json:"merges"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return doc.Model.Merges
}

func rawList(t *testing.T, s string) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return out
}

func TestDetectForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Form
	}{
		{`[]`, FormEmpty},
		{`[["a","b"]]`, FormPair},
		{`["a b"]`, FormJoined},
		{`[1, 2]`, FormUnknown},
		{`[{"a":"b"}]`, FormUnknown},
		{`[null]`, FormUnknown},
	}
	for _, tc := range tests {
		if got := DetectForm(rawList(t, tc.input)); got != tc.want {
			t.Errorf("DetectForm(%s): expected %v, got %v", tc.input, tc.want, got)
		}
	}
}

func TestJoinPairs(t *testing.T) {
	t.Parallel()

	got, err := JoinPairs(rawList(t, `[["Ġ","t"],["h","e"],["Ġt","he"]]`))
	if err != nil {
		t.Fatalf("JoinPairs returned error: %v", err)
	}
	want := []string{"Ġ t", "h e", "Ġt he"}
	if len(got) != len(want) {
		t.Fatalf("unexpected count: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected merge at %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestJoinPairsRejectsMalformedPairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		index int
	}{
		{"three members", `[["a","b"],["c","d","e"]]`, 1},
		{"one member", `[["a"]]`, 0},
		{"non-string member", `[["a","b"],["c",1]]`, 1},
		{"mixed forms", `[["a","b"],"c d"]`, 1},
		{"null member", `[["a",null]]`, 0},
		{"null first member", `[["a","b"],[null,"c"]]`, 1},
		{"nested member", `[[["a"],"b"]]`, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := JoinPairs(rawList(t, tc.input))
			var se *ShapeError
			if !errors.As(err, &se) {
				t.Fatalf("expected ShapeError, got %v", err)
			}
			if se.Index != tc.index {
				t.Fatalf("unexpected index: got %d want %d", se.Index, tc.index)
			}
		})
	}
}

func TestFixFilePairForm(t *testing.T) {
	t.Parallel()

	original := `{"model": {"merges": [["Ġ", "t"], ["h", "e"]]}}`
	path := writeTokenizer(t, original)

	res, err := FixFile(path, Options{})
	if err != nil {
		t.Fatalf("FixFile returned error: %v", err)
	}
	if res.Outcome != Fixed {
		t.Fatalf("unexpected outcome: %v", res.Outcome)
	}
	if res.Form != FormPair || res.Merges != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.BackupPath != path+".bak" {
		t.Fatalf("unexpected backup path: %q", res.BackupPath)
	}

	got := readMerges(t, path)
	if len(got) != 2 || got[0] != "Ġ t" || got[1] != "h e" {
		t.Fatalf("unexpected merges: %q", got)
	}

	backup, err := os.ReadFile(res.BackupPath)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(backup) != original {
		t.Fatalf("backup differs from original: %s", backup)
	}
}

func TestFixFileKeepsOtherFields(t *testing.T) {
	t.Parallel()

	path := writeTokenizer(t, `{
  "version": "1.0",
  "added_tokens": [{"id": 0, "content": "<s>", "special": true}],
  "model": {
    "type": "BPE",
    "dropout": null,
    "vocab": {"<s>": 0, "Ġ": 1, "t": 2, "Ġt": 3},
    "merges": [["Ġ", "t"]]
  }
}`)

	if _, err := FixFile(path, Options{}); err != nil {
		t.Fatalf("FixFile returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixed: %v", err)
	}
	if !bytes.Contains(data, []byte("\n  \"")) {
		t.Fatalf("expected indented output, got: %s", data)
	}

	var doc struct {
		Version     string `json:"version"`
		AddedTokens []struct {
			Content string `json:"content"`
		} `json:"added_tokens"`
		Model struct {
			Type    string         `json:"type"`
			Dropout *float64       `json:"dropout"`
			Vocab   map[string]int `json:"vocab"`
			Merges  []string       `json:"merges"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode fixed: %v", err)
	}
	if doc.Version != "1.0" || doc.Model.Type != "BPE" || doc.Model.Dropout != nil {
		t.Fatalf("unexpected fields: %+v", doc)
	}
	if len(doc.AddedTokens) != 1 || doc.AddedTokens[0].Content != "<s>" {
		t.Fatalf("unexpected added tokens: %+v", doc.AddedTokens)
	}
	if doc.Model.Vocab["Ġt"] != 3 || len(doc.Model.Vocab) != 4 {
		t.Fatalf("unexpected vocab: %v", doc.Model.Vocab)
	}
	if len(doc.Model.Merges) != 1 || doc.Model.Merges[0] != "Ġ t" {
		t.Fatalf("unexpected merges: %q", doc.Model.Merges)
	}
}

func TestFixFileIsIdempotent(t *testing.T) {
	t.Parallel()

	original := `{"model": {"merges": [["a", "b"], ["c", "d"]]}}`
	path := writeTokenizer(t, original)

	if _, err := FixFile(path, Options{}); err != nil {
		t.Fatalf("first FixFile returned error: %v", err)
	}
	fixed, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixed: %v", err)
	}

	res, err := FixFile(path, Options{})
	if err != nil {
		t.Fatalf("second FixFile returned error: %v", err)
	}
	if res.Outcome != AlreadyCorrect {
		t.Fatalf("unexpected outcome on second run: %v", res.Outcome)
	}
	if res.BackupPath != "" {
		t.Fatalf("expected no backup on second run, got %q", res.BackupPath)
	}

	again, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read after second run: %v", err)
	}
	if !bytes.Equal(fixed, again) {
		t.Fatalf("second run modified the document")
	}
	backup, err := os.ReadFile(BackupPath(path))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(backup) != original {
		t.Fatalf("second run replaced the backup: %s", backup)
	}
}

func TestFixFileNoWrites(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		outcome Outcome
	}{
		{"joined form", `{"model": {"merges": ["Ġ t", "h e"]}}`, AlreadyCorrect},
		{"empty merges", `{"model": {"merges": []}}`, NothingToDo},
		{"missing merges", `{"model": {"type": "WordPiece"}}`, NothingToDo},
		{"null merges", `{"model": {"merges": null}}`, NothingToDo},
		{"missing model", `{"version": "1.0"}`, NothingToDo},
		{"numeric merges", `{"model": {"merges": [1, 2]}}`, UnexpectedShape},
		{"merges not a list", `{"model": {"merges": "a b"}}`, UnexpectedShape},
		{"model not an object", `{"model": ["a"]}`, UnexpectedShape},
		{"ragged pairs", `{"model": {"merges": [["a", "b"], ["c"]]}}`, UnexpectedShape},
		{"null pair member", `{"model": {"merges": [["a", null], ["b", "c"]]}}`, UnexpectedShape},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeTokenizer(t, tc.input)

			res, err := FixFile(path, Options{})
			if err != nil {
				t.Fatalf("FixFile returned error: %v", err)
			}
			if res.Outcome != tc.outcome {
				t.Fatalf("unexpected outcome: got %v want %v", res.Outcome, tc.outcome)
			}
			if tc.outcome == UnexpectedShape && res.Shape == nil {
				t.Fatalf("expected shape detail for unexpected shape")
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) != tc.input {
				t.Fatalf("document was modified: %s", data)
			}
			if _, err := os.Stat(BackupPath(path)); !os.IsNotExist(err) {
				t.Fatalf("expected no backup, stat err=%v", err)
			}
		})
	}
}

func TestFixFileDryRun(t *testing.T) {
	t.Parallel()

	original := `{"model": {"merges": [["a", "b"]]}}`
	path := writeTokenizer(t, original)

	res, err := FixFile(path, Options{DryRun: true})
	if err != nil {
		t.Fatalf("FixFile returned error: %v", err)
	}
	if res.Outcome != Fixed || !res.DryRun {
		t.Fatalf("unexpected result: %+v", res)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != original {
		t.Fatalf("dry run modified the document")
	}
	if _, err := os.Stat(BackupPath(path)); !os.IsNotExist(err) {
		t.Fatalf("dry run wrote a backup")
	}
}

func TestFixFileParseError(t *testing.T) {
	t.Parallel()

	path := writeTokenizer(t, `{"model": {"merges": [["a", "b"]`)
	_, err := FixFile(path, Options{})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Path != path {
		t.Fatalf("unexpected path on ParseError: %q", pe.Path)
	}
}

func TestFixRejectsNonObjectDocuments(t *testing.T) {
	t.Parallel()

	for _, input := range []string{`null`, `["a", "b"]`, `"tokenizer"`} {
		_, out, err := Fix([]byte(input))
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected ParseError, got %v", input, err)
		}
		if out != nil {
			t.Fatalf("%s: expected no output", input)
		}
	}
}

func TestFixOutOfRangeNumber(t *testing.T) {
	t.Parallel()

	// 1e400 is valid JSON but does not fit a float64. It must either survive
	// untouched or be reported as a parse failure, never a bare encode error.
	input := `{"model": {"dropout": 1e400, "merges": [["a", "b"]]}}`
	res, out, err := Fix([]byte(input))
	if err != nil {
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ParseError, got %T: %v", err, err)
		}
		return
	}
	if res.Outcome != Fixed {
		t.Fatalf("unexpected outcome: %v", res.Outcome)
	}
	if !bytes.Contains(out, []byte("1e400")) {
		t.Fatalf("expected raw number to survive: %s", out)
	}
}

func TestFixFileMissing(t *testing.T) {
	t.Parallel()

	_, err := FixFile(filepath.Join(t.TempDir(), "tokenizer.json"), Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestFixLargeMergeList(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.WriteString(`{"model":{"merges":[`)
	const n = 5000
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`["x","y"]`)
	}
	buf.WriteString(`]}}`)

	res, out, err := Fix(buf.Bytes())
	if err != nil {
		t.Fatalf("Fix returned error: %v", err)
	}
	if res.Outcome != Fixed || res.Merges != n {
		t.Fatalf("unexpected result: %+v", res)
	}
	var doc struct {
		Model struct {
			Merges []string `json:"merges"`
		} `json:"model"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Model.Merges) != n {
		t.Fatalf("unexpected merge count: %d", len(doc.Model.Merges))
	}
}

func TestVerifyMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Verify(filepath.Join(t.TempDir(), "tokenizer.json")); err == nil {
		t.Fatal("expected error for missing tokenizer")
	}
}
