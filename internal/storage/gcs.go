package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const signedURLTTL = 1 * time.Hour

// GCSBucket uploads objects to a Google Cloud Storage bucket and resolves
// signed URLs for them.
type GCSBucket struct {
	client *storage.Client
	bucket string
}

// NewGCSBucket creates a GCSBucket for the given bucket. opts are passed
// through to the underlying GCS client, allowing credential injection.
func NewGCSBucket(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSBucket, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage: GCS bucket name must not be empty")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	return &GCSBucket{client: client, bucket: bucket}, nil
}

// Put streams content to GCS at req.ObjectName. The client's retry policy is
// disabled for the write; a failed upload is reported, not repeated.
func (b *GCSBucket) Put(ctx context.Context, req *PutRequest) (*Object, error) {
	obj := b.client.Bucket(b.bucket).Object(req.ObjectName).Retryer(storage.WithPolicy(storage.RetryNever))
	w := obj.NewWriter(ctx)
	w.ContentType = req.ContentType

	n, err := io.Copy(w, req.Content)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("storage: upload write failed for %q: %w", req.ObjectName, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("storage: upload close failed for %q: %w", req.ObjectName, err)
	}

	return &Object{Name: req.ObjectName, Size: n}, nil
}

// DownloadURL signs a GET URL for objectName valid for signedURLTTL.
func (b *GCSBucket) DownloadURL(_ context.Context, objectName string) (string, error) {
	signedURL, err := b.client.Bucket(b.bucket).SignedURL(objectName, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(signedURLTTL),
	})
	if err != nil {
		return "", fmt.Errorf("storage: failed to sign URL for %q: %w", objectName, err)
	}
	return signedURL, nil
}

func (b *GCSBucket) ConsoleURL() string {
	return "https://console.cloud.google.com/storage/browser/" + b.bucket
}

// Close releases the underlying client.
func (b *GCSBucket) Close() error {
	return b.client.Close()
}
