package imagestore

import (
	"context"
	"errors"
	"path"
	"strings"
)

var ErrInvalidObjectName = errors.New("invalid object name")

// Store keeps image objects addressed by object name. Delete of a missing
// object succeeds.
type Store interface {
	Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

// cleanObjectName rejects absolute names and path traversal before an object
// name reaches a backend.
func cleanObjectName(objectName string) (string, error) {
	objectName = strings.TrimSpace(objectName)
	if objectName == "" || strings.HasPrefix(objectName, "/") || strings.Contains(objectName, "..") {
		return "", ErrInvalidObjectName
	}
	cleaned := path.Clean(objectName)
	if cleaned == "." {
		return "", ErrInvalidObjectName
	}
	return cleaned, nil
}
