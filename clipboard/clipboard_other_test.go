//go:build linux

package clipboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func fakeTool(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)
}

func TestReadText(t *testing.T) {
	fakeTool(t, "xclip", `printf 'Take two tablets daily'`)
	got, err := ReadText(context.Background())
	if err != nil {
		t.Fatalf("ReadText() error = %v", err)
	}
	if got != "Take two tablets daily" {
		t.Errorf("ReadText() = %q", got)
	}
}

func TestReadTextEmpty(t *testing.T) {
	fakeTool(t, "wl-paste", `printf '  \n'`)
	if _, err := ReadText(context.Background()); !errors.Is(err, ErrEmpty) {
		t.Errorf("ReadText() error = %v, want ErrEmpty", err)
	}
}

func TestReadTextNoTool(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := ReadText(context.Background()); !errors.Is(err, ErrNoTool) {
		t.Errorf("ReadText() error = %v, want ErrNoTool", err)
	}
}
