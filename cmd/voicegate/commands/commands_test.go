package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/voicegate/cmd/voicegate/internal/config"
	"github.com/haivivi/voicegate/pkg/audio/synth"
	"github.com/haivivi/voicegate/pkg/audio/wavfile"
)

// setupTestEnv points the config directory at a fresh temp dir and
// returns it.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvDir, dir)
	t.Setenv(config.EnvOpenAIKey, "")
	t.Setenv(config.EnvGeminiKey, "")
	return dir
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	globalConfig = nil
	registry = nil

	var outBuf, errBuf bytes.Buffer
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)
	err = execute(context.Background())

	resetFlags(rootCmd)
	return outBuf.String(), errBuf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
			return
		}
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeVoice renders a synthetic clip into dir and returns its path.
func writeVoice(t *testing.T, dir, name string, v synth.Voice) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := wavfile.Write(path, v.Render(3, 16000)); err != nil {
		t.Fatal(err)
	}
	return path
}

func enrollAlice(t *testing.T, dir string) {
	t.Helper()
	args := []string{"enroll", "alice"}
	for i := range 3 {
		p := writeVoice(t, dir, "a"+string(rune('1'+i))+".wav", synth.Voice{Pitch: 150, Seed: uint64(i + 1)})
		args = append(args, "--clip", p)
	}
	if _, stderr, err := runCmd(t, args...); err != nil {
		t.Fatalf("enroll: %v\n%s", err, stderr)
	}
}

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	stdout, _, err := runCmd(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "voicegate") {
		t.Fatalf("expected 'voicegate', got: %s", stdout)
	}

	stdout, _, err = runCmd(t, "version", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, `"profile_schema": "2.0"`) {
		t.Fatalf("expected JSON, got: %s", stdout)
	}
}

func TestBadOutputFormat(t *testing.T) {
	setupTestEnv(t)
	if _, _, err := runCmd(t, "version", "-o", "xml"); err == nil {
		t.Fatal("expected error for -o xml")
	}
}

func TestEnrollVerifyList(t *testing.T) {
	dir := setupTestEnv(t)
	enrollAlice(t, dir)

	if _, err := os.Stat(filepath.Join(dir, "voice_profiles.json")); err != nil {
		t.Fatalf("profile document not written: %v", err)
	}

	stdout, _, err := runCmd(t, "list", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var users []string
	if err := json.Unmarshal([]byte(stdout), &users); err != nil || len(users) != 1 || users[0] != "alice" {
		t.Fatalf("list = %q (%v)", stdout, err)
	}

	probe := writeVoice(t, dir, "probe.wav", synth.Voice{Pitch: 150, Seed: 4})
	stdout, _, err = runCmd(t, "verify", "alice", "--clip", probe, "--jq", ".verified")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if strings.TrimSpace(stdout) != "true" {
		t.Errorf("verified = %q", stdout)
	}

	other := writeVoice(t, dir, "other.wav", synth.Voice{Pitch: 400, Formants: synth.BrightFormants, SyllableRate: 2, Duty: 0.6, Seed: 4})
	stdout, _, err = runCmd(t, "verify", "alice", "--clip", other, "-o", "table")
	if !errors.Is(err, ErrNotVerified) {
		t.Fatalf("impostor: err = %v", err)
	}
	if !strings.Contains(stdout, "REJECTED") {
		t.Errorf("table output:\n%s", stdout)
	}

	stdout, _, err = runCmd(t, "verify", "alice", "--clip", probe, "--mode", "simple", "--jq", ".mode")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != "simple" {
		t.Errorf("mode = %q", stdout)
	}
}

func TestVerifyErrors(t *testing.T) {
	dir := setupTestEnv(t)
	probe := writeVoice(t, dir, "probe.wav", synth.Voice{Pitch: 150, Seed: 4})

	if _, _, err := runCmd(t, "verify", "nobody", "--clip", probe); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("unknown user: err = %v", err)
	}
	if _, _, err := runCmd(t, "verify", "alice"); err == nil || !strings.Contains(err.Error(), "no input") {
		t.Errorf("no input: err = %v", err)
	}
	if _, _, err := runCmd(t, "verify", "alice", "--clip", probe, "--mic"); err == nil {
		t.Error("--clip with --mic should fail")
	}
	if _, _, err := runCmd(t, "verify", "alice", "--clip", probe, "--ladder", "steep"); err == nil || !strings.Contains(err.Error(), "ladder") {
		t.Errorf("bad ladder: err = %v", err)
	}
}

func TestEnrollRejectsSilence(t *testing.T) {
	dir := setupTestEnv(t)
	silent := filepath.Join(dir, "silent.wav")
	if err := wavfile.Write(silent, synth.Silence(3, 16000)); err != nil {
		t.Fatal(err)
	}
	voice := writeVoice(t, dir, "a1.wav", synth.Voice{Pitch: 150, Seed: 1})

	stdout, _, err := runCmd(t, "enroll", "bob", "--clip", voice, "--clip", silent, "-o", "json")
	if err == nil || !strings.Contains(err.Error(), "insufficient samples") {
		t.Fatalf("err = %v", err)
	}
	var res struct {
		Accepted int `json:"accepted"`
		Rejected []struct {
			Attempt int `json:"attempt"`
		} `json:"rejected"`
	}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("output not JSON: %v\n%s", err, stdout)
	}
	if res.Accepted != 1 || len(res.Rejected) != 1 || res.Rejected[0].Attempt != 2 {
		t.Errorf("result = %+v", res)
	}
}

func TestProfileCommands(t *testing.T) {
	dir := setupTestEnv(t)
	enrollAlice(t, dir)

	stdout, _, err := runCmd(t, "profile", "show", "alice", "-o", "json", "--jq", ".sample_count")
	if err != nil || strings.TrimSpace(stdout) != "3" {
		t.Fatalf("show = %q, %v", stdout, err)
	}

	stdout, _, err = runCmd(t, "profile", "check", "alice", "--jq", ".integrity_ok")
	if err != nil || strings.TrimSpace(stdout) != "true" {
		t.Fatalf("check = %q, %v", stdout, err)
	}

	if _, _, err := runCmd(t, "profile", "backup", "alice"); err == nil {
		t.Error("backup before re-enrollment should not exist")
	}
	enrollAlice(t, dir)
	stdout, _, err = runCmd(t, "profile", "backup", "alice", "--restore", "--jq", ".user")
	if err != nil || strings.TrimSpace(stdout) != "alice" {
		t.Fatalf("restore = %q, %v", stdout, err)
	}

	stdout, _, err = runCmd(t, "profile", "schema", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"scalar_features"`, `"profile_hash"`, `"date-time"`} {
		if !strings.Contains(stdout, want) {
			t.Errorf("schema missing %s", want)
		}
	}
}

func TestAnalyze(t *testing.T) {
	dir := setupTestEnv(t)
	clip := writeVoice(t, dir, "a1.wav", synth.Voice{Pitch: 150, Seed: 1})
	stdout, _, err := runCmd(t, "analyze", clip, "--jq", ".enroll_gate.passes")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != "true" {
		t.Errorf("enroll gate = %q", stdout)
	}
	if _, _, err := runCmd(t, "analyze", filepath.Join(dir, "missing.wav")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestStoreRepair(t *testing.T) {
	dir := setupTestEnv(t)
	enrollAlice(t, dir)

	doc := filepath.Join(dir, "voice_profiles.json")
	data, err := os.ReadFile(doc)
	if err != nil {
		t.Fatal(err)
	}
	// Drop the closing brace.
	trimmed := bytes.TrimRight(data, "\n")
	if err := os.WriteFile(doc, trimmed[:len(trimmed)-1], 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCmd(t, "list"); err == nil {
		t.Fatal("list should fail on a damaged document")
	}

	stdout, _, err := runCmd(t, "store", "repair", "--jq", ".repaired")
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if strings.TrimSpace(stdout) != "true" {
		t.Errorf("repaired = %q", stdout)
	}
	stdout, _, err = runCmd(t, "list", "--jq", ".[]")
	if err != nil || strings.TrimSpace(stdout) != "alice" {
		t.Errorf("list after repair = %q, %v", stdout, err)
	}
}

func TestSynth(t *testing.T) {
	dir := setupTestEnv(t)
	out := filepath.Join(dir, "v.wav")
	if _, _, err := runCmd(t, "synth", out, "--pitch", "220", "--seconds", "1.5"); err != nil {
		t.Fatal(err)
	}
	clip, err := wavfile.Read(out)
	if err != nil {
		t.Fatal(err)
	}
	if clip.SampleRate != 16000 || clip.Frames() != 24000 {
		t.Errorf("clip = %d Hz, %d frames", clip.SampleRate, clip.Frames())
	}
}

func TestConfigCommands(t *testing.T) {
	dir := setupTestEnv(t)

	stdout, _, err := runCmd(t, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != filepath.Join(dir, "config.yaml") {
		t.Errorf("path = %q", stdout)
	}

	if _, _, err := runCmd(t, "config", "init"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, _, err := runCmd(t, "config", "init"); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, _, err := runCmd(t, "config", "init", "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}

	stdout, _, err = runCmd(t, "config", "show", "--jq", ".store.kind")
	if err != nil || strings.TrimSpace(stdout) != "file" {
		t.Errorf("show = %q, %v", stdout, err)
	}
}

func TestMetricsFile(t *testing.T) {
	dir := setupTestEnv(t)
	enrollAlice(t, dir)
	probe := writeVoice(t, dir, "probe.wav", synth.Voice{Pitch: 150, Seed: 4})
	metrics := filepath.Join(dir, "voicegate.prom")

	if _, _, err := runCmd(t, "verify", "alice", "--clip", probe, "--metrics-file", metrics); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(data), "voicegate_verifications_total") {
		t.Errorf("metrics file:\n%s", data)
	}
}
