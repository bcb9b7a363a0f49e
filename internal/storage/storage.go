package storage

import "context"

// ObjectStorage is the write/remove contract media services depend on.
// Implementations return a public URL for every stored object and keep
// paths namespaced per user.
type ObjectStorage interface {
	Write(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, path string) error
}
