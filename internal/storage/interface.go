package storage

import (
	"context"
	"io"
)

// Storage holds uploaded score sheets and the JSON reports written after a
// batch run.
type Storage interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, data io.ReadSeeker) error
}
