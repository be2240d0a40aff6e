package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gravitas-games/hexrange/internal/store"
)

func TestRunDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hex.png")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-o", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d (%s)", code, stderr.String())
	}
	if strings.TrimSpace(stdout.String()) != path {
		t.Fatalf("expected output path on stdout, got %q", stdout.String())
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if cfg.Width != 400 || cfg.Height != 400 {
		t.Fatalf("expected 400x400, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-help"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0 for -help, got %d", code)
	}
	if !strings.Contains(stderr.String(), "-output-file") {
		t.Fatalf("expected usage on stderr, got %q", stderr.String())
	}
}

func TestRunValidationFailsBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	cases := [][]string{
		{"-sizeX", "-20"},
		{"-sizeY=-1"},
		{"-r", "-1"},
		{"-w", "0"},
	}
	for _, args := range cases {
		path := filepath.Join(dir, "never.png")
		var stdout, stderr bytes.Buffer
		if code := run(append(args, "-f", path), &stdout, &stderr); code == 0 {
			t.Fatalf("expected non-zero exit for %v", args)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected no output file for %v, stat err=%v", args, err)
		}
	}
}

func TestRunBadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-nope"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected exit 2 for unknown flag, got %d", code)
	}
}

func TestRunUnwritableOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "hex.png")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-o", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1 for unwritable path, got %d", code)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "hex.yaml")
	dbPath := filepath.Join(dir, "history.db")
	yaml := "database:\n  path: " + dbPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", cfgPath, "-o", filepath.Join(dir, "hex.png"), "-range", "0"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	defer db.Close()
	recs, err := db.Recent(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].Highlighted != 1 || recs[0].Source != "cli" {
		t.Fatalf("unexpected history %+v", recs)
	}
}
