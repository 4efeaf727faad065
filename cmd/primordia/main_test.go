package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var midgame = filepath.Join("..", "..", "internal", "scenario", "testdata", "midgame.yaml")

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-png", "out.png", "-record", "2", "-book", "game.yaml"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if opts.pngPath != "out.png" || opts.record != 2 || !opts.book || opts.path != "game.yaml" {
		t.Fatalf("unexpected options: %+v", opts)
	}

	bad := [][]string{
		{},
		{"a.yaml", "b.yaml"},
		{"-record", "3", "a.yaml"},
		{"-encode", "-server", "http://localhost:8080", "a.yaml"},
	}
	for _, args := range bad {
		if _, err := parseFlags(args, io.Discard); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestUsageListsEveryFlag(t *testing.T) {
	var stderr bytes.Buffer
	if _, err := parseFlags(nil, &stderr); err == nil {
		t.Fatalf("expected error without a scenario file")
	}
	usage := strings.SplitN(stderr.String(), "\n", 2)[0]
	for _, flag := range []string{"-png", "-title", "-record", "-encode", "-book", "-server"} {
		if !strings.Contains(usage, "["+flag) {
			t.Fatalf("usage line missing %s: %q", flag, usage)
		}
	}
}

func TestRunLocal(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	pngPath := filepath.Join(t.TempDir(), "board.png")

	var out bytes.Buffer
	opts := options{pngPath: pngPath, record: 1, book: true, encode: true, path: midgame}
	if err := runLocal(context.Background(), opts, &out); err != nil {
		t.Fatalf("runLocal: %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"Turn 3 (shooting), player 1 to act. Take and Hold / Dawn of War",
		"Win probability:",
		"Deployment: Standard Deployment",
		"\"total_dim\": 488",
		"Indexed game 5d0c3a7e-8f7b-4a0e-9a59-3d2b6f0e4c11",
		"board image written to " + pngPath,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	png, err := os.ReadFile(pngPath)
	if err != nil || !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("png not written: %v", err)
	}
}

func TestRunLocalMissingFile(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	err := runLocal(context.Background(), options{path: filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "read scenario") {
		t.Fatalf("expected read error, got %v", err)
	}
}
