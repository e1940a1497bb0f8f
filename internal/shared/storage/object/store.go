package object

import (
	"context"
	"io"
)

// ObjectStore persists uploaded document bytes. Keys are opaque to callers;
// Save derives one from the owner and file name and reports the detected
// mime type and size.
type ObjectStore interface {
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
