// Package camera provides the capture pipelines that turn a camera source
// into a JPEG file on disk. A pipeline is opened once with Start, produces
// one photo per Capture call, and is released with Close.
package camera

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 90

// Pipeline encodes a single frame from a camera source to path.
type Pipeline interface {
	Start(ctx context.Context) error
	Capture(ctx context.Context, path string) error
	Close() error
}

// writeAtomic writes to a temporary file beside path and renames it into
// place once fn succeeds, so a failed capture never leaves a partial file.
func writeAtomic(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("camera: failed to create directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".capture-*.jpg")
	if err != nil {
		return fmt.Errorf("camera: failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("camera: failed to close %q: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("camera: failed to move capture to %q: %w", path, err)
	}
	return nil
}

func writeJPEG(path string, img image.Image, quality int) error {
	if quality <= 0 {
		quality = DefaultQuality
	}
	return writeAtomic(path, func(w io.Writer) error {
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("camera: JPEG encode failed: %w", err)
		}
		return nil
	})
}

func writeBytes(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("camera: write failed: %w", err)
		}
		return nil
	})
}
