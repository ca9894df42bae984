package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.aimuz.me/clearsight/internal/types"
)

// DirCamera serves the image files of a directory in name order, looping.
// It stands in for a webcam in demos and tests.
type DirCamera struct {
	Dir string

	state openState

	mu    sync.Mutex
	files []string
	next  int
}

func (c *DirCamera) Open(_ context.Context, facing types.Facing) error {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return fmt.Errorf("read frame dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(c.Dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no images in %s: %w", c.Dir, ErrNoFrame)
	}
	slices.Sort(files)

	c.mu.Lock()
	c.files, c.next = files, 0
	c.mu.Unlock()
	c.state.set(true, facing)
	return nil
}

func (c *DirCamera) Close() error {
	c.state.set(false, "")
	return nil
}

func (c *DirCamera) Frame(_ context.Context) (types.Frame, error) {
	if open, _ := c.state.get(); !open {
		return types.Frame{}, ErrNotOpen
	}

	c.mu.Lock()
	path := c.files[c.next%len(c.files)]
	c.next++
	c.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Frame{}, fmt.Errorf("read frame: %w", err)
	}
	img, err := ToJPEG(data)
	if err != nil {
		return types.Frame{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return types.Frame{Image: img, CapturedAt: time.Now()}, nil
}

// ToJPEG returns data unchanged when it is already JPEG and re-encodes
// any other supported image format.
func ToJPEG(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte{0xff, 0xd8}) {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
