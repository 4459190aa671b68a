package imagestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStore(root, "http://127.0.0.1:8080/uploads/")
	require.NoError(t, err)

	ctx := context.Background()
	url, err := s.Put(ctx, "invoices/inv-1/a.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/uploads/invoices/inv-1/a.png", url)

	data, err := os.ReadFile(filepath.Join(root, "invoices", "inv-1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	require.NoError(t, s.Delete(ctx, "invoices/inv-1/a.png"))
	_, err = os.Stat(filepath.Join(root, "invoices", "inv-1", "a.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStoreDeleteMissingSucceeds(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)
	assert.NoError(t, s.Delete(context.Background(), "invoices/none/missing.jpg"))
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	for _, name := range []string{"", "/etc/passwd", "../outside.png", "invoices/../../x"} {
		_, err := s.Put(context.Background(), name, []byte("x"), "image/png")
		assert.ErrorIs(t, err, ErrInvalidObjectName, name)
		assert.ErrorIs(t, s.Delete(context.Background(), name), ErrInvalidObjectName, name)
	}
}
