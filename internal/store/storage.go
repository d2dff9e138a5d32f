package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultImageBucket is the storage bucket product images are uploaded to.
const DefaultImageBucket = "product-images"

// StorageClient uploads files into one bucket of the project's object storage.
type StorageClient struct {
	rest   *RestClient
	bucket string
}

// NewStorageClient creates a storage client sharing the REST client's endpoint,
// key and HTTP transport.
func NewStorageClient(rest *RestClient, bucket string) *StorageClient {
	if bucket == "" {
		bucket = DefaultImageBucket
	}
	return &StorageClient{rest: rest, bucket: bucket}
}

// UploadImage stores body at path inside the bucket and returns its public URL.
// Existing objects are not overwritten.
func (s *StorageClient) UploadImage(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	path = strings.TrimLeft(path, "/")
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.rest.projectURL, s.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("store: build upload request: %w", err)
	}
	s.rest.authorize(req)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.rest.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("store: upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return "", decodeAPIError(resp.StatusCode, raw)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return s.PublicURL(path), nil
}

// PublicURL returns the URL a public bucket serves path from.
func (s *StorageClient) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.rest.projectURL, s.bucket, strings.TrimLeft(path, "/"))
}
