package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes one object in blob storage.
type BlobInfo struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	// Put uploads data in a single request.
	Put(ctx context.Context, path string, data io.Reader, contentType string) error

	// PutMultipart uploads data as a concurrent multipart upload. Use
	// for payloads too large for a single Put.
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves objects and object metadata from blob storage.
type BlobReader interface {
	// Get returns the object body. The caller closes the reader.
	// Returns ErrNotFound if the object does not exist.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// List returns metadata for all objects under the given prefix.
	List(ctx context.Context, prefix string) ([]BlobInfo, error)

	// Exists reports whether an object exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)
}
