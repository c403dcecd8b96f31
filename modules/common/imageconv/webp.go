package imageconv

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

const WebPMIMEType = "image/webp"

// WebPConverter - re-encodes JPEG/PNG images as lossy WebP
type WebPConverter struct {
	Quality float32
}

func NewWebPConverter(quality float32) *WebPConverter {
	return &WebPConverter{Quality: quality}
}

// Convert - returns the WebP bytes and their MIME type
func (c *WebPConverter) Convert(data []byte) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, c.Quality)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, "", fmt.Errorf("failed to encode WebP: %w", err)
	}

	out := buf.Bytes()
	log.Printf("✅ %s converted to WebP: %d bytes → %d bytes", format, len(data), len(out))
	return out, WebPMIMEType, nil
}
