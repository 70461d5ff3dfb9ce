package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestBondCommand(t *testing.T) {
	out := execute(t, "bond")
	for _, want := range []string{"$104.38", "$104.65", "2.47% (green)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProgressCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "storage:\n  backend: file\n  file_path: " + filepath.Join(dir, "progress.json") + "\nlog:\n  mode: prod\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	out := execute(t, "progress", "--config", cfgPath)
	if !strings.Contains(out, "Slide 1 of 47") {
		t.Errorf("fresh learner should start on slide 1:\n%s", out)
	}

	out = execute(t, "progress", "--config", cfgPath, "--reset")
	if !strings.Contains(out, "cleared") {
		t.Errorf("reset not reported:\n%s", out)
	}
}
