// Package ocr extracts printed text from photos of documents so it can be
// simplified.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoText is returned when the image holds no readable text.
var ErrNoText = errors.New("no text found in image")

// Tesseract runs the tesseract command line.
type Tesseract struct {
	Binary   string // defaults to "tesseract"
	Language string // tesseract language code, defaults to "eng"
}

// RecognizeText returns the text in the image at imagePath.
func (t Tesseract) RecognizeText(ctx context.Context, imagePath string) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	lang := t.Language
	if lang == "" {
		lang = "eng"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("find tesseract: %w", err)
	}

	var stderr strings.Builder
	cmd := exec.CommandContext(ctx, path, imagePath, "stdout", "-l", lang)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
