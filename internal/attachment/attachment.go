package attachment

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"path"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"

	"invoicebook/backend/internal/domain"
	"invoicebook/backend/internal/imagestore"
	"invoicebook/backend/internal/logging"
	"invoicebook/backend/internal/store"
)

const (
	MaxImageBytes   = 5 << 20
	MaxImageEdgePx  = 2000
	imageFieldName  = "invoiceImage"
	objectKeyPrefix = "invoices"
)

// MaxImagePixels bounds the decoded bitmap, which the byte cap alone does not.
const MaxImagePixels = 40_000_000

// Manager validates invoice images, stores them and releases replaced ones.
type Manager struct {
	store  imagestore.Store
	logger logrus.FieldLogger
}

func NewManager(objects imagestore.Store, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{store: objects, logger: logger}
}

// Prepared is a normalized image ready for upload.
type Prepared struct {
	Data        []byte
	ContentType string
	Extension   string
	Width       int
	Height      int
}

// Prepare checks size and format, then re-encodes the image with its long
// edge capped at MaxImageEdgePx. Only the file content decides the format.
func (m *Manager) Prepare(upload domain.ImageUpload) (Prepared, error) {
	if len(upload.Data) == 0 {
		return Prepared{}, invalidImage("required")
	}
	if len(upload.Data) > MaxImageBytes {
		return Prepared{}, invalidImage("max_5mb")
	}

	sniffed := http.DetectContentType(upload.Data)
	var format imaging.Format
	var contentType, ext string
	switch sniffed {
	case "image/jpeg":
		format, contentType, ext = imaging.JPEG, "image/jpeg", "jpg"
	case "image/png":
		format, contentType, ext = imaging.PNG, "image/png", "png"
	case "image/webp":
		// Re-encoded as jpeg: the webp package only decodes.
		format, contentType, ext = imaging.JPEG, "image/jpeg", "jpg"
	default:
		return Prepared{}, invalidImage("format")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil {
		return Prepared{}, invalidImage("decode")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return Prepared{}, invalidImage("dimensions")
	}

	img, err := imaging.Decode(bytes.NewReader(upload.Data), imaging.AutoOrientation(true))
	if err != nil {
		return Prepared{}, invalidImage("decode")
	}
	img = downscale(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return Prepared{}, fmt.Errorf("encode image: %w", err)
	}

	bounds := img.Bounds()
	return Prepared{
		Data:        buf.Bytes(),
		ContentType: contentType,
		Extension:   ext,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}, nil
}

// Upload prepares the image and stores it under the invoice's prefix.
func (m *Manager) Upload(ctx context.Context, invoiceID string, upload domain.ImageUpload) (domain.InvoiceImage, error) {
	prepared, err := m.Prepare(upload)
	if err != nil {
		return domain.InvoiceImage{}, err
	}

	objectName := ObjectName(invoiceID, prepared.Extension)
	url, err := m.store.Put(ctx, objectName, prepared.Data, prepared.ContentType)
	if err != nil {
		return domain.InvoiceImage{}, fmt.Errorf("store invoice image: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"invoiceId": invoiceID,
		"storageId": objectName,
		"bytes":     len(prepared.Data),
	}).Info("invoice_image_uploaded")

	return domain.InvoiceImage{URL: url, StorageID: objectName}, nil
}

// Release deletes a stored image. Failures are logged and never returned:
// a leftover object is preferable to failing the request that replaced it.
func (m *Manager) Release(ctx context.Context, storageID string) {
	if storageID == "" {
		return
	}
	if err := m.store.Delete(ctx, storageID); err != nil {
		m.logger.WithFields(logrus.Fields{
			"storageId": storageID,
			"error":     err.Error(),
		}).Warn("invoice_image_release_failed")
		return
	}
	m.logger.WithField("storageId", storageID).Debug("invoice_image_released")
}

func ObjectName(invoiceID string, ext string) string {
	return path.Join(objectKeyPrefix, invoiceID, uuid.NewString()+"."+ext)
}

func downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= MaxImageEdgePx && bounds.Dy() <= MaxImageEdgePx {
		return img
	}
	return imaging.Fit(img, MaxImageEdgePx, MaxImageEdgePx, imaging.Lanczos)
}

func invalidImage(rule string) error {
	return &store.ValidationError{
		Message: "invalid invoice image",
		Fields:  map[string]string{imageFieldName: rule},
	}
}
