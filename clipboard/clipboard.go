// Package clipboard reads text from the system clipboard.
package clipboard

import (
	"context"
	"errors"
	"strings"
)

// ErrEmpty is returned when the clipboard holds no text.
var ErrEmpty = errors.New("clipboard is empty")

// ReadText returns the text on the clipboard.
func ReadText(ctx context.Context) (string, error) {
	text, err := readText(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmpty
	}
	return text, nil
}
