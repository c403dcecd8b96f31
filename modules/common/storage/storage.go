package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// BlobStore keeps a generated artifact and returns a URL the browser can load it from.
type BlobStore interface {
	Save(ctx context.Context, data []byte, contentType string) (string, error)
}

type blob struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// MemoryBlobStore - process-local artifacts served under /blobs/{id}
type MemoryBlobStore struct {
	prefix     string
	maxEntries int

	mu    sync.RWMutex
	blobs map[string]blob
	order []string
}

// NewMemoryBlobStore - keeps at most maxEntries blobs, evicting the oldest first
func NewMemoryBlobStore(prefix string, maxEntries int) *MemoryBlobStore {
	if maxEntries <= 0 {
		maxEntries = 32
	}
	return &MemoryBlobStore{
		prefix:     strings.TrimRight(prefix, "/"),
		maxEntries: maxEntries,
		blobs:      make(map[string]blob),
	}
}

func (s *MemoryBlobStore) Save(_ context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("refusing to store empty blob")
	}

	id := uuid.New().String()

	s.mu.Lock()
	s.blobs[id] = blob{data: data, contentType: contentType, createdAt: time.Now()}
	s.order = append(s.order, id)
	for len(s.order) > s.maxEntries {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.blobs, evicted)
		log.Printf("🗑️  [Blobs] Evicted blob %s", evicted)
	}
	s.mu.Unlock()

	log.Printf("💾 [Blobs] Stored blob %s (%d bytes, %s)", id, len(data), contentType)
	return fmt.Sprintf("%s/%s", s.prefix, id), nil
}

// RegisterRoutes - GET {prefix}/{blobId}
func (s *MemoryBlobStore) RegisterRoutes(r *mux.Router) {
	r.HandleFunc(s.prefix+"/{blobId}", s.ServeBlob).Methods("GET")
}

func (s *MemoryBlobStore) ServeBlob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["blobId"]

	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "Blob not found", http.StatusNotFound)
		return
	}

	contentType := b.contentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, id, b.createdAt, bytes.NewReader(b.data))
}

// SupabaseBlobStore - uploads artifacts to a public Supabase Storage bucket
type SupabaseBlobStore struct {
	baseURL    string
	serviceKey string
	bucket     string
	client     *http.Client
}

func NewSupabaseBlobStore(baseURL, serviceKey, bucket string) *SupabaseBlobStore {
	return &SupabaseBlobStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		client:     &http.Client{Timeout: 5 * time.Minute},
	}
}

func (s *SupabaseBlobStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	filePath := fmt.Sprintf("generated-videos/%s/%s%s", time.Now().UTC().Format("2006-01-02"), uuid.New().String(), extensionFor(contentType))
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, filePath)

	log.Printf("📤 [Storage] Uploading artifact: %s (%d bytes)", filePath, len(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, filePath)
	log.Printf("✅ [Storage] Artifact uploaded: %s", publicURL)
	return publicURL, nil
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "video/mp4"):
		return ".mp4"
	case strings.HasPrefix(contentType, "video/webm"):
		return ".webm"
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	default:
		return ""
	}
}
