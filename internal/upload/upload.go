// Package upload pushes captured photos to a storage bucket and resolves the
// link used to view them.
//
// An upload is two sequential round-trips: Push writes the bytes under
// images/<name>, and Link asks the bucket for a download URL. Callers only
// start the second after the first has succeeded. Neither is retried.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tomasbasham/photo-capture/internal/logging"
	"github.com/tomasbasham/photo-capture/internal/storage"
)

// Prefix is the fixed object key prefix for uploaded photos.
const Prefix = "images/"

const contentType = "image/jpeg"

var (
	ErrUploadFailed    = errors.New("upload failed")
	ErrLinkFetchFailed = errors.New("failed to get download URL")
	ErrOpenFailed      = errors.New("could not open image")
)

// Opener hands a URL to the host's default handler.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Coordinator runs uploads against a single bucket.
type Coordinator struct {
	bucket storage.Bucket
	opener Opener
	log    logging.Logger
}

// NewCoordinator returns a Coordinator writing to bucket. A nil log discards
// output.
func NewCoordinator(bucket storage.Bucket, opener Opener, log logging.Logger) *Coordinator {
	if log == nil {
		log = logging.Discard()
	}
	return &Coordinator{bucket: bucket, opener: opener, log: log}
}

// ObjectName derives the remote object name for a local file: its last path
// segment, or a random UUID with a .jpg extension when there is none.
func ObjectName(localPath string) string {
	base := path.Base(filepath.ToSlash(localPath))
	if base == "." || base == "/" {
		return uuid.New().String() + ".jpg"
	}
	return base
}

// Key returns the full object key for a local file.
func Key(localPath string) string {
	return Prefix + ObjectName(localPath)
}

// Push uploads the file at localPath and returns its object key.
func (c *Coordinator) Push(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer f.Close()

	key := Key(localPath)
	obj, err := c.bucket.Put(ctx, &storage.PutRequest{
		ObjectName:  key,
		Content:     f,
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	c.log.Debug(ctx, "object written", "object", obj.Name, "bytes", obj.Size)
	return key, nil
}

// Link resolves the download URL for an object pushed earlier.
func (c *Coordinator) Link(ctx context.Context, key string) (string, error) {
	u, err := c.bucket.DownloadURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLinkFetchFailed, err)
	}
	if u == "" {
		return "", fmt.Errorf("%w: empty URL for %q", ErrLinkFetchFailed, key)
	}
	return u, nil
}

// Open opens publicURL, or the bucket's console when publicURL is empty.
// It returns the URL it attempted to open.
func (c *Coordinator) Open(ctx context.Context, publicURL string) (string, error) {
	target := publicURL
	if target == "" {
		target = c.bucket.ConsoleURL()
	}
	if c.opener == nil {
		return target, fmt.Errorf("%w: no opener configured", ErrOpenFailed)
	}
	if err := c.opener.Open(ctx, target); err != nil {
		return target, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	return target, nil
}
