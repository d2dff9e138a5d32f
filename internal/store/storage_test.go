package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, handler http.HandlerFunc) (*StorageClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	rest, err := NewRestClient(server.URL, testKey, server.Client())
	require.NoError(t, err)
	return NewStorageClient(rest, ""), server
}

func TestStorageClient_UploadImage(t *testing.T) {
	storage, server := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/product-images/products/1700000000000-abc123.jpg", r.URL.Path)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer operator-token", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "jpeg-bytes", string(body))
		_, _ = io.WriteString(w, `{"Key":"product-images/products/1700000000000-abc123.jpg"}`)
	})

	ctx := WithAccessToken(context.Background(), "operator-token")
	url, err := storage.UploadImage(ctx, "products/1700000000000-abc123.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/storage/v1/object/public/product-images/products/1700000000000-abc123.jpg", url)
}

func TestStorageClient_UploadImage_Failure(t *testing.T) {
	storage, _ := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`)
	})

	url, err := storage.UploadImage(context.Background(), "products/a.png", "image/png", strings.NewReader("x"))
	require.Error(t, err)
	assert.Empty(t, url)
	assert.Equal(t, "The resource already exists", Message(err))
}
