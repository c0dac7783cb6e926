package collection

import (
	"io"
	"strings"
	"testing"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    string
		wantOK  bool
		wantErr bool
	}{
		{"plain", `{"text": "hello"}`, "hello", true, false},
		{"extra fields", `{"id": 7, "text": "hi", "lines": []}`, "hi", true, false},
		{"missing", `{"id": 7}`, "", false, false},
		{"null", `{"text": null}`, "", false, false},
		{"empty", `{"text": ""}`, "", false, false},
		{"whitespace is kept", `{"text": " "}`, " ", true, false},
		{"escaped", `{"text": "a\nbé"}`, "a\nbé", true, false},
		{"zero", `{"text": 0}`, "", false, false},
		{"negative zero float", `{"text": -0.0e3}`, "", false, false},
		{"false", `{"text": false}`, "", false, false},
		{"empty array", `{"text": []}`, "", false, false},
		{"empty object", `{"text": { }}`, "", false, false},
		{"number", `{"text": 1}`, "", false, true},
		{"non-empty array", `{"text": [""]}`, "", false, true},
		{"bool", `{"text": true}`, "", false, true},
		{"array line", `[1, 2]`, "", false, true},
		{"null line", `null`, "", false, true},
		{"truncated", `{"text": "a`, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := extractText([]byte(tt.line), "text")
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("extractText() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAppendDocument(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     string
	}{
		{"plain", "a b", `{"id": 3, "contents": "a b"}`},
		{"empty", "", `{"id": 3, "contents": ""}`},
		{"html is not escaped", "<a href='x'>&</a>", `{"id": 3, "contents": "<a href='x'>&</a>"}`},
		{"quotes and backslash", `say "hi" \ bye`, `{"id": 3, "contents": "say \"hi\" \\ bye"}`},
		{"short escapes", "a\nb\tc\rd\be\ff", `{"id": 3, "contents": "a\nb\tc\rd\be\ff"}`},
		{"control characters", "\x00\x1f\x7f", `{"id": 3, "contents": "\u0000\u001f\u007f"}`},
		{"latin", "café", `{"id": 3, "contents": "caf\u00e9"}`},
		{"cjk", "東京", `{"id": 3, "contents": "\u6771\u4eac"}`},
		{"astral plane", "😀", `{"id": 3, "contents": "\ud83d\ude00"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(appendDocument(nil, OutputDocument{ID: 3, Contents: tt.contents}))
			if got != tt.want+"\n" {
				t.Errorf("appendDocument() = %q, want %q", got, tt.want+"\n")
			}
		})
	}
}

func TestLineReader(t *testing.T) {
	lr := newLineReader(strings.NewReader("a\r\nb\n\nc"))

	var got []string
	for {
		line, err := lr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, string(line))
	}

	want := []string{"a", "b", "", "c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
	if lr.LineNo() != 4 {
		t.Errorf("LineNo() = %d, want 4", lr.LineNo())
	}
}

func TestShardFileName(t *testing.T) {
	tests := map[int]string{0: "docs00.json", 7: "docs07.json", 42: "docs42.json", 123: "docs123.json"}
	for index, want := range tests {
		if got := ShardFileName(index); got != want {
			t.Errorf("ShardFileName(%d) = %s, want %s", index, got, want)
		}
	}
}
