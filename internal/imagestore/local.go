package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects below a directory. Files are expected to be
// served by the HTTP layer under baseURL.
type LocalStore struct {
	root    string
	baseURL string
}

func NewLocalStore(root string, baseURL string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("upload directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) Put(ctx context.Context, objectName string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := cleanObjectName(objectName)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write object %s: %w", name, err)
	}

	return s.baseURL + "/" + name, nil
}

func (s *LocalStore) Delete(ctx context.Context, objectName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := cleanObjectName(objectName)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
