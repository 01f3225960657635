package core

import (
	"context"

	"github.com/pkg/errors"
)

// ErrSnapshotNotFound is returned by Storage.Load when nothing was ever saved under a key.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Storage is the durable medium the site document is mirrored to.
// Saves replace the previous value wholesale; the last writer wins.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}
