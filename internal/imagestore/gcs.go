package imagestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore uses explicit service account JSON when given, otherwise
// application default credentials.
func NewGCSStore(ctx context.Context, bucket string, credentialsJSON string) (*GCSStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gcs bucket %q not found or not accessible: %w", bucket, err)
	}

	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	name, err := cleanObjectName(objectName)
	if err != nil {
		return "", err
	}

	wc := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("finalize upload %s: %w", name, err)
	}

	return s.objectURL(name), nil
}

func (s *GCSStore) Delete(ctx context.Context, objectName string) error {
	name, err := cleanObjectName(objectName)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *GCSStore) objectURL(objectName string) string {
	return gcsPublicHost + "/" + s.bucket + "/" + objectName
}
