//go:build linux

package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func fakeTesseract(t *testing.T, script string) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "tesseract")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return bin
}

func TestRecognizeText(t *testing.T) {
	// echoes its arguments so the call shape is checked too
	bin := fakeTesseract(t, `echo "$1 $2 $3 $4"`)
	got, err := Tesseract{Binary: bin, Language: "deu"}.RecognizeText(context.Background(), "letter.png")
	if err != nil {
		t.Fatalf("RecognizeText() error = %v", err)
	}
	if want := "letter.png stdout -l deu"; got != want {
		t.Errorf("RecognizeText() = %q, want %q", got, want)
	}
}

func TestRecognizeTextErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		is     error
	}{
		{"blank page", `printf '\n\n'`, ErrNoText},
		{"fails", `echo "cannot read" >&2; exit 1`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := fakeTesseract(t, tt.script)
			_, err := Tesseract{Binary: bin}.RecognizeText(context.Background(), "x.png")
			if err == nil {
				t.Fatal("RecognizeText() should fail")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestRecognizeTextMissingBinary(t *testing.T) {
	_, err := Tesseract{Binary: filepath.Join(t.TempDir(), "none")}.RecognizeText(context.Background(), "x.png")
	if err == nil {
		t.Error("RecognizeText() should fail without tesseract")
	}
}
