package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"portfolio-studio-server/modules/common/gemini"
)

const (
	defaultVideoMIMEType = "video/mp4"
	maxVideoBytes        = 512 << 20
)

// Fetcher downloads finished videos. The service only serves them to callers
// that present the API key as the key query parameter.
type Fetcher struct {
	apiKey   string
	client   *http.Client
	maxBytes int64
}

func NewFetcher(apiKey string, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Fetcher{apiKey: apiKey, client: client, maxBytes: maxVideoBytes}
}

// Fetch - GET videoURI with the key appended; any non-2xx status is a failure
func (f *Fetcher) Fetch(ctx context.Context, videoURI, mimeHint string) ([]byte, string, error) {
	fetchURL, err := withKey(videoURI, f.apiKey)
	if err != nil {
		return nil, "", gemini.NewGenerationError(gemini.OpFetchVideo, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, "", gemini.NewGenerationError(gemini.OpFetchVideo, err)
	}

	log.Printf("📥 [Video] Downloading generated video")
	resp, err := f.client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			// url.Error carries the request URL, which includes the key
			err = urlErr.Err
		}
		return nil, "", gemini.NewGenerationError(gemini.OpFetchVideo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("❌ [Video] Download failed - Status: %s", resp.Status)
		return nil, "", gemini.NewGenerationError(gemini.OpFetchVideo, errors.New(resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, "", gemini.NewGenerationError(gemini.OpFetchVideo, fmt.Errorf("failed to read video data: %w", err))
	}
	if int64(len(data)) > f.maxBytes {
		log.Printf("❌ [Video] Download exceeds %d bytes, aborting", f.maxBytes)
		return nil, "", gemini.NewGenerationError(gemini.OpFetchVideo, fmt.Errorf("video exceeds %d bytes", f.maxBytes))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimeHint
	}
	if contentType == "" {
		contentType = defaultVideoMIMEType
	}

	log.Printf("✅ [Video] Video downloaded: %d bytes (%s)", len(data), contentType)
	return data, contentType, nil
}

func withKey(rawURI, apiKey string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid video URI: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid video URI scheme: %q", u.Scheme)
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
