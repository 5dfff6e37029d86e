package interfaces

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named blob does not exist
var ErrNotFound = errors.New("not found")

// FileStorage - uniform access to named blobs under a path prefix.
// Implemented by the local filesystem and the object store.
type FileStorage interface {
	// List returns the names directly under prefix, sorted, without the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// FileExists reports whether prefix/name exists
	FileExists(ctx context.Context, prefix, name string) (bool, error)

	// ReadFile returns the content of prefix/name, ErrNotFound when absent
	ReadFile(ctx context.Context, prefix, name string) (string, error)

	// WriteFile creates or overwrites prefix/name
	WriteFile(ctx context.Context, prefix, name, content string) error

	// AppendToFile appends content to prefix/name, creating it when absent
	AppendToFile(ctx context.Context, prefix, name, content string) error

	// DownloadObject copies the blob at key to a local path
	DownloadObject(ctx context.Context, key, localPath string) error

	// UploadObject copies a local file to key
	UploadObject(ctx context.Context, localPath, key string) error
}
