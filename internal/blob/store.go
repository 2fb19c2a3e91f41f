package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no object exists under the name.
var ErrNotFound = errors.New("blob not found")

// Store reads and overwrites named objects.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFS     = "fs"
	BackendBadger = "badger"
)

// Open creates the store for backend rooted at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFS, "":
		return NewFSStore(path)
	case BackendBadger:
		return OpenBadger(path)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", backend)
	}
}

// validName rejects names that could escape the store root.
func validName(name string) error {
	if name == "" {
		return errors.New("blob name is required")
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("invalid blob name %q", name)
	}
	return nil
}
