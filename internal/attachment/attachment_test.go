package attachment

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/imagestore"
	"invoicebook/backend/internal/store"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

// pngHeader returns a PNG signature and IHDR chunk declaring the given size
// with no pixel data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth, grayscale color type

	chunk := append([]byte("IHDR"), ihdr...)
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestPrepareRejectsOversizedDimensions(t *testing.T) {
	objects := imagestore.NewMemoryStore()
	m := NewManager(objects, nil)

	upload := domain.ImageUpload{FileName: "huge.png", Data: pngHeader(8000, 8000)}
	require.Less(t, len(upload.Data), 1024)

	_, err := m.Prepare(upload)
	var vErr *store.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "dimensions", vErr.Fields["invoiceImage"])

	_, err = m.Upload(context.Background(), "inv-1", upload)
	require.ErrorIs(t, err, store.ErrInvalidInput)
	assert.Empty(t, objects.Objects())
}

func TestPrepareRejectsBadHeaderBeforeDecode(t *testing.T) {
	m := NewManager(imagestore.NewMemoryStore(), nil)

	// Within the pixel budget, so the missing pixel data surfaces as a decode failure.
	_, err := m.Prepare(domain.ImageUpload{Data: pngHeader(100, 100)})
	var vErr *store.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "decode", vErr.Fields["invoiceImage"])
}

func TestPrepareKeepsSmallPNG(t *testing.T) {
	m := NewManager(imagestore.NewMemoryStore(), nil)

	prepared, err := m.Prepare(domain.ImageUpload{FileName: "scan.png", Data: pngBytes(t, 40, 30)})
	require.NoError(t, err)
	assert.Equal(t, "image/png", prepared.ContentType)
	assert.Equal(t, "png", prepared.Extension)
	assert.Equal(t, 40, prepared.Width)
	assert.Equal(t, 30, prepared.Height)
}

func TestPrepareDownscalesLongEdge(t *testing.T) {
	m := NewManager(imagestore.NewMemoryStore(), nil)

	prepared, err := m.Prepare(domain.ImageUpload{Data: jpegBytes(t, 3000, 1500)})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", prepared.ContentType)
	assert.Equal(t, MaxImageEdgePx, prepared.Width)
	assert.Equal(t, 1000, prepared.Height)
}

func TestPrepareRejectsBadInput(t *testing.T) {
	m := NewManager(imagestore.NewMemoryStore(), nil)

	cases := map[string]domain.ImageUpload{
		"required": {},
		"max_5mb":  {Data: bytes.Repeat([]byte{0xff}, MaxImageBytes+1)},
		"format":   {FileName: "fake.png", ContentType: "image/png", Data: []byte(strings.Repeat("not an image ", 10))},
		"decode":   {Data: append([]byte("\x89PNG\r\n\x1a\n"), 0, 0, 0)},
	}
	for rule, upload := range cases {
		_, err := m.Prepare(upload)
		require.ErrorIs(t, err, store.ErrInvalidInput, rule)
		var vErr *store.ValidationError
		require.ErrorAs(t, err, &vErr, rule)
		assert.Equal(t, rule, vErr.Fields["invoiceImage"], rule)
	}
}

func TestUploadStoresUnderInvoicePrefix(t *testing.T) {
	objects := imagestore.NewMemoryStore()
	m := NewManager(objects, nil)

	img, err := m.Upload(context.Background(), "inv-42", domain.ImageUpload{Data: pngBytes(t, 10, 10)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(img.StorageID, "invoices/inv-42/"))
	assert.True(t, strings.HasSuffix(img.StorageID, ".png"))
	assert.Equal(t, "memory://"+img.StorageID, img.URL)
	assert.Equal(t, []string{img.StorageID}, objects.Objects())
}

func TestUploadPropagatesStoreFailure(t *testing.T) {
	objects := imagestore.NewMemoryStore()
	objects.FailPut = true
	m := NewManager(objects, nil)

	_, err := m.Upload(context.Background(), "inv-1", domain.ImageUpload{Data: pngBytes(t, 5, 5)})
	assert.ErrorIs(t, err, imagestore.ErrUnavailable)
}

func TestReleaseFailureIsLoggedNotReturned(t *testing.T) {
	objects := imagestore.NewMemoryStore()
	objects.FailDelete = true
	logger, hook := logtest.NewNullLogger()
	m := NewManager(objects, logger)

	m.Release(context.Background(), "invoices/inv-1/old.jpg")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "invoice_image_release_failed", entry.Message)
	assert.Equal(t, "invoices/inv-1/old.jpg", entry.Data["storageId"])
}

func TestReleaseIgnoresEmptyStorageID(t *testing.T) {
	objects := imagestore.NewMemoryStore()
	m := NewManager(objects, nil)

	m.Release(context.Background(), "")
	assert.Empty(t, objects.Deleted())
}
