package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"intake/internal/config"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	content := "[paths]\n" +
		"data_dir = \"" + cfg.Paths.DataDir + "\"\n" +
		"export_dir = \"" + cfg.Paths.ExportDir + "\"\n" +
		"log_dir = \"" + cfg.Paths.LogDir + "\"\n"
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCaptureShowListFlow(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "capture", "https://x.test/a?utm_source=x&b=2&a=1", "--intent", "t")
	if err != nil {
		t.Fatalf("capture: %v\n%s", err, out)
	}
	if !strings.Contains(out, "https://x.test/a?a=1&b=2") {
		t.Fatalf("canonical url missing from output:\n%s", out)
	}
	if !strings.Contains(out, "replay:  no") {
		t.Fatalf("expected fresh capture:\n%s", out)
	}

	// A second identical capture replays.
	out, err = runCommand(t, configPath, "capture", "https://x.test/a?utm_source=x&b=2&a=1", "--intent", "t")
	if err != nil {
		t.Fatalf("replay capture: %v\n%s", err, out)
	}
	if !strings.Contains(out, "replay:  yes") {
		t.Fatalf("expected replay:\n%s", out)
	}

	out, err = runCommand(t, configPath, "list", "--status", "queued")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "queued") || !strings.Contains(out, "x.test") {
		t.Fatalf("queued item missing from list:\n%s", out)
	}
}

func TestQueueHealthCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "queue", "health")
	if err != nil {
		t.Fatalf("health: %v\n%s", err, out)
	}
	if !strings.Contains(out, "0 item(s) total") {
		t.Fatalf("unexpected health output:\n%s", out)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCommand(t, configPath, "list", "--status", "bogus"); err == nil {
		t.Fatal("unknown status must be rejected")
	}
}

func TestParsePins(t *testing.T) {
	overrides, err := parsePins([]string{"todos=2", "Card=1"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if overrides["todos"] != 2 || overrides["card"] != 1 {
		t.Fatalf("unexpected overrides %v", overrides)
	}
	if _, err := parsePins([]string{"todos"}); err == nil {
		t.Fatal("missing version must be rejected")
	}
	if _, err := parsePins([]string{"todos=x"}); err == nil {
		t.Fatal("non-numeric version must be rejected")
	}
}
