package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type result struct {
	User   string             `json:"target_user"`
	Score  float64            `json:"similarity_score"`
	Scores map[string]float64 `json:"detailed_scores"`
}

var sample = result{User: "alice", Score: 0.82, Scores: map[string]float64{"mfcc": 0.9, "pitch": 0.7}}

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(sample, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if got["target_user"] != "alice" {
		t.Errorf("target_user = %v, want alice", got["target_user"])
	}
}

func TestOutput_YAMLUsesJSONTags(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(sample, OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"target_user: alice", "similarity_score: 0.82", "mfcc: 0.9"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
}

func TestOutput_Table(t *testing.T) {
	var buf bytes.Buffer
	err := Output(sample, OutputOptions{Format: FormatTable, Writer: &buf, Table: func() string { return "TABLE" }})
	if err != nil {
		t.Fatal(err)
	}
	if buf.String() != "TABLE\n" {
		t.Errorf("table output = %q", buf.String())
	}

	buf.Reset()
	if err := Output(sample, OutputOptions{Format: FormatTable, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "target_user: alice") {
		t.Errorf("table without renderer should fall back to yaml, got %q", buf.String())
	}
}

func TestOutput_JQ(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		format OutputFormat
		want   string
	}{
		{"string raw", ".target_user", FormatJSON, "alice\n"},
		{"number json", ".similarity_score", FormatJSON, "0.82\n"},
		{"object yaml", ".detailed_scores", FormatYAML, "mfcc: 0.9\npitch: 0.7\n"},
		{"stream", ".detailed_scores | keys[]", FormatYAML, "mfcc\npitch\n"},
		{"empty", "empty", FormatJSON, ""},
		{"table falls back", ".detailed_scores.pitch", FormatTable, "0.7\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Output(sample, OutputOptions{Format: tt.format, Writer: &buf, JQ: tt.expr, Table: func() string { return "TABLE" }})
			if err != nil {
				t.Fatalf("Output: %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestOutput_JQErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(sample, OutputOptions{Writer: &buf, JQ: ".["}); err == nil || !strings.Contains(err.Error(), "invalid jq expression") {
		t.Errorf("parse error = %v", err)
	}
	if err := Output(sample, OutputOptions{Writer: &buf, JQ: `error("boom")`}); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("runtime error = %v", err)
	}
}

func TestOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output(sample, OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"target_user": "alice"`) {
		t.Errorf("file content = %s", data)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatYAML, "yaml": FormatYAML, "json": FormatJSON, "table": FormatTable} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}
