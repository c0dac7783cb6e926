package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ricesearch/irtools/internal/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestConvertCollection(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	input := `{"id": "a", "text": "first"}
{"id": "b", "text": ""}
{"id": "c", "text": "second"}
{"id": "d", "text": "third"}
`
	if err := os.WriteFile(filepath.Join(in, "wiki-001.jsonl"), []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, err := execute(t,
		"--collection_path", in,
		"--output_folder", out,
		"--max_docs_per_file", "2",
		"--progress_interval", "3",
	)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := "Converting collection...\nConverted 3 docs in 2 files\nDone!\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}

	first, err := os.ReadFile(filepath.Join(out, "docs00.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != "{\"id\": 0, \"contents\": \"first\"}\n{\"id\": 1, \"contents\": \"second\"}\n" {
		t.Errorf("docs00.json = %q", first)
	}
	second, err := os.ReadFile(filepath.Join(out, "docs01.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(second) != "{\"id\": 2, \"contents\": \"third\"}\n" {
		t.Errorf("docs01.json = %q", second)
	}
}

func TestConvertCollection_Errors(t *testing.T) {
	in := t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "bad.jsonl"), []byte("{oops\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"missing flags", []string{}, 2},
		{"bad max docs", []string{"--collection_path", in, "--output_folder", t.TempDir(), "--max_docs_per_file", "0"}, 2},
		{"missing directory", []string{"--collection_path", filepath.Join(in, "nope"), "--output_folder", t.TempDir()}, 3},
		{"malformed input", []string{"--collection_path", in, "--output_folder", t.TempDir()}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, err := execute(t, tt.args...)
			if got := errors.ExitCode(err); got != tt.wantCode {
				t.Errorf("ExitCode = %d, want %d (err = %v)", got, tt.wantCode, err)
			}
			if strings.Contains(stdout, "Done!") {
				t.Errorf("failed run should not print Done!")
			}
		})
	}
}
