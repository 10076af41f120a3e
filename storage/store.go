// Package storage implements the local content store holding downloaded
// audio bytes, keyed by track id.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists for the key.
var ErrNotFound = errors.New("object not found")

// ContentStore is the persistent key-to-bytes store for downloaded audio.
// Operations are atomic with respect to a single key: a Get never observes
// a partially written object (implementations buffer the full payload
// before the store-visible write).
type ContentStore interface {
	// Put stores data under id with its media content type.
	Put(ctx context.Context, id string, data []byte, contentType string) error
	// Get returns the stored bytes and content type, or ErrNotFound.
	Get(ctx context.Context, id string) ([]byte, string, error)
	// Exists reports whether bytes are stored under id.
	Exists(ctx context.Context, id string) (bool, error)
	// Delete removes the object for id. Deleting a missing key is not an error.
	Delete(ctx context.Context, id string) error
	// ListKeys returns all stored ids.
	ListKeys(ctx context.Context) ([]string, error)
	// Clear removes every object.
	Clear(ctx context.Context) error
	// URL derives a fresh playable handle to the stored bytes. Each call
	// supersedes any handle previously issued for the same id.
	URL(ctx context.Context, id string) (string, error)
}
