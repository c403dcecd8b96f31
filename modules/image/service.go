package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"portfolio-studio-server/modules/common/gemini"
	"portfolio-studio-server/modules/common/metrics"
)

var (
	ErrPromptRequired    = errors.New("prompt is required")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Generator produces images from a prompt.
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) ([]gemini.GeneratedImage, error)
}

// Converter re-encodes raw image bytes, returning the new bytes and MIME type.
type Converter interface {
	Convert(data []byte) ([]byte, string, error)
}

type Service struct {
	generator Generator
	webp      Converter
	metrics   *metrics.Metrics
}

// NewService - webp may be nil, in which case format=webp is rejected
func NewService(generator Generator, webp Converter, m *metrics.Metrics) *Service {
	return &Service{generator: generator, webp: webp, metrics: m}
}

// Generate - images for prompt as data URLs in the requested format
func (s *Service) Generate(ctx context.Context, prompt, format string) ([]ImagePayload, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptRequired
	}
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", FormatJPEG:
	case FormatWebP:
		if s.webp == nil {
			return nil, fmt.Errorf("%w: webp output is not available", ErrUnsupportedFormat)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	images, err := s.generator.GenerateImage(ctx, prompt)
	s.metrics.ObserveGeneration("image", err)
	if err != nil {
		log.Printf("❌ [Image] Generation failed: %v", err)
		return nil, err
	}

	payloads := make([]ImagePayload, 0, len(images))
	for i, img := range images {
		encoded, mimeType := img.ImageBytes, img.MIMEType
		if format == FormatWebP {
			encoded, mimeType = s.toWebP(i, img)
		}
		payloads = append(payloads, ImagePayload{
			DataURL:  fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
			MIMEType: mimeType,
		})
	}

	log.Printf("✅ [Image] Returning %d image(s) (format: %s)", len(payloads), payloadFormat(format))
	return payloads, nil
}

// toWebP converts one image, keeping the original when conversion fails.
func (s *Service) toWebP(index int, img gemini.GeneratedImage) (string, string) {
	raw, err := base64.StdEncoding.DecodeString(img.ImageBytes)
	if err != nil {
		log.Printf("⚠️  [Image] Image %d is not valid base64, keeping original: %v", index, err)
		return img.ImageBytes, img.MIMEType
	}

	converted, mimeType, err := s.webp.Convert(raw)
	if err != nil {
		log.Printf("⚠️  [Image] WebP conversion of image %d failed, keeping original: %v", index, err)
		return img.ImageBytes, img.MIMEType
	}
	return base64.StdEncoding.EncodeToString(converted), mimeType
}

func payloadFormat(format string) string {
	if format == "" {
		return FormatJPEG
	}
	return format
}
