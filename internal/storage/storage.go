// Package storage provides the object-storage backends photos are pushed to.
// Every backend follows the same two-step contract: Put writes the bytes,
// and DownloadURL is a separate round-trip that resolves a link for viewing
// the object. Neither step retries.
package storage

import (
	"context"
	"io"
)

// Bucket persists objects to a storage backend and resolves links to them.
type Bucket interface {
	// Put uploads the content of req under req.ObjectName.
	Put(ctx context.Context, req *PutRequest) (*Object, error)

	// DownloadURL returns a URL from which the named object can be viewed.
	DownloadURL(ctx context.Context, objectName string) (string, error)

	// ConsoleURL is a fixed URL for browsing the bucket as a whole.
	ConsoleURL() string
}

type PutRequest struct {
	// ObjectName is the object path within the configured bucket.
	ObjectName string

	// Content is the data to be uploaded.
	Content io.Reader

	// ContentType is the MIME type of the content, e.g. "image/jpeg".
	ContentType string
}

// Object describes an object after a successful Put.
type Object struct {
	// Name is the object path within the configured bucket.
	Name string

	// Size is the number of bytes written.
	Size int64
}
