// Package storage persists avatar files keyed by a flat filename.
package storage

import (
	"context"
	"errors"
)

var ErrInvalidName = errors.New("invalid object name")

type Store interface {
	// Put writes data under name, replacing whatever was there.
	Put(ctx context.Context, name string, data []byte, contentType string) error
	// Delete removes name; a missing object is not an error.
	Delete(ctx context.Context, name string) error
}
