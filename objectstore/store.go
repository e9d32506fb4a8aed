// Package objectstore mirrors the local data directory into object storage.
package objectstore

import (
	"context"
	"io"
)

// Store defines the interface for object storage operations.
type Store interface {
	// Put stores an object under input.Key, replacing any existing object.
	Put(ctx context.Context, input *PutInput) (*PutResult, error)

	// Ping checks that the destination is reachable.
	Ping(ctx context.Context) error
}

// PutInput holds the parameters for uploading an object.
type PutInput struct {
	Key         string
	ContentType string
	Size        int64
	Data        io.Reader
}

// PutResult holds the result of a successful upload.
type PutResult struct {
	Key string
	URL string
}
