package object

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when a storage key has no object behind it.
	ErrNotFound = errors.New("object not found")
	// ErrUnavailable is returned when the backing store itself is missing or unreachable.
	ErrUnavailable = errors.New("object store unavailable")
)

// ObjectStore defines the contract for saving, retrieving and removing binary objects.
// Implementations never create the backing infrastructure; see Provisioner.
type ObjectStore interface {
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
	Check(ctx context.Context) error
}

// Provisioner creates the backing infrastructure. Only deployment tooling calls it.
type Provisioner interface {
	Provision(ctx context.Context) error
}
