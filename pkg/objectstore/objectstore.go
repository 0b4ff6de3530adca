// Package objectstore reads and removes uploaded analysis inputs.
package objectstore

import (
	"context"
	"errors"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectStore interface {
	// Download returns the content of key. A missing key is ErrObjectNotFound.
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
