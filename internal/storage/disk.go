package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// LocalBucket writes objects to a directory on the local filesystem. Download
// URLs are file:// URLs and never expire.
type LocalBucket struct {
	baseDir string
}

// NewLocalBucket creates a LocalBucket that writes objects under baseDir.
// The directory is created if it does not already exist.
func NewLocalBucket(baseDir string) (*LocalBucket, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create local base directory %q: %w", baseDir, err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to resolve absolute path for %q: %w", baseDir, err)
	}
	return &LocalBucket{baseDir: abs}, nil
}

// Put writes content to baseDir/objectName, creating any intermediate
// directories as needed.
func (b *LocalBucket) Put(_ context.Context, req *PutRequest) (*Object, error) {
	dest := b.path(req.ObjectName)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("storage: failed to create directory for %q: %w", req.ObjectName, err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create file %q: %w", dest, err)
	}
	defer f.Close()

	n, err := io.Copy(f, req.Content)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to write file %q: %w", dest, err)
	}

	return &Object{Name: req.ObjectName, Size: n}, nil
}

// DownloadURL returns a file:// URL for an object previously written by Put.
func (b *LocalBucket) DownloadURL(_ context.Context, objectName string) (string, error) {
	dest := b.path(objectName)
	if _, err := os.Stat(dest); err != nil {
		return "", fmt.Errorf("storage: object %q: %w", objectName, err)
	}
	return fileURL(dest), nil
}

func (b *LocalBucket) ConsoleURL() string {
	return fileURL(b.baseDir)
}

func (b *LocalBucket) path(objectName string) string {
	return filepath.Join(b.baseDir, filepath.FromSlash(objectName))
}

func fileURL(path string) string {
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
