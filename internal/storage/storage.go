// Package storage holds the key/value blob stores that source images and
// their thumbnails are persisted to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
)

var (
	ErrNotFound   = errors.New("storage: key not found")
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Storage persists blobs by key. Save returns the key actually used, which
// callers must treat as authoritative.
type Storage interface {
	Save(ctx context.Context, key string, content []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// Reader is implemented by stores that can return previously saved content.
type Reader interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// ReadWriter is a Storage that can also read content back.
type ReadWriter interface {
	Storage
	Reader
}

// CleanKey normalizes a slash-separated key and rejects keys that are empty
// or climb out of the store root.
func CleanKey(key string) (string, error) {
	trimmed := strings.TrimLeft(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

func detectMime(content []byte) string {
	return http.DetectContentType(content)
}
