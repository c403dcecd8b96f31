package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlobStore_SaveAndServe(t *testing.T) {
	store := NewMemoryBlobStore("/blobs", 4)
	r := mux.NewRouter()
	store.RegisterRoutes(r)

	url, err := store.Save(context.Background(), []byte("video-bytes"), "video/mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/blobs/"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "video-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMemoryBlobStore_EvictsOldest(t *testing.T) {
	store := NewMemoryBlobStore("/blobs", 2)
	ctx := context.Background()

	first, err := store.Save(ctx, []byte("1"), "video/mp4")
	require.NoError(t, err)
	_, err = store.Save(ctx, []byte("2"), "video/mp4")
	require.NoError(t, err)
	_, err = store.Save(ctx, []byte("3"), "video/mp4")
	require.NoError(t, err)

	assert.Len(t, store.blobs, 2)
	assert.NotContains(t, store.blobs, strings.TrimPrefix(first, "/blobs/"))
}

func TestMemoryBlobStore_RejectsEmpty(t *testing.T) {
	_, err := NewMemoryBlobStore("/blobs", 1).Save(context.Background(), nil, "video/mp4")
	assert.Error(t, err)
}

func TestSupabaseBlobStore_Save(t *testing.T) {
	var gotPath, gotAuth, gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := NewSupabaseBlobStore(server.URL+"/", "service-key", "portfolio-videos")
	url, err := store.Save(context.Background(), []byte("mp4"), "video/mp4")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotPath, "/storage/v1/object/portfolio-videos/generated-videos/"))
	assert.True(t, strings.HasSuffix(gotPath, ".mp4"))
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "video/mp4", gotType)
	assert.Equal(t, "mp4", gotBody)
	assert.True(t, strings.HasPrefix(url, server.URL+"/storage/v1/object/public/portfolio-videos/generated-videos/"))
}

func TestSupabaseBlobStore_UploadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bucket not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewSupabaseBlobStore(server.URL, "k", "missing").Save(context.Background(), []byte("x"), "video/mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
