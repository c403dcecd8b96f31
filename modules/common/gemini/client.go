package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

const (
	imageOutputMIMEType = "image/jpeg"
	imageAspectRatio    = "1:1"
)

// Options - explicit client configuration
type Options struct {
	APIKey     string
	TextModel  string
	ImageModel string
	VideoModel string
}

// Client wraps the four generation operations used by the portfolio.
type Client struct {
	opts    Options
	backend Backend
}

// NewClient - creates the client; without an API key it is returned uninitialized and every call fails
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		log.Println("❌ [Gemini] API key not found, client is not initialized")
		return &Client{opts: opts}, nil
	}

	backend, err := NewSDKBackend(ctx, opts.APIKey)
	if err != nil {
		return nil, err
	}
	return &Client{opts: opts, backend: backend}, nil
}

// NewClientWithBackend - creates a client on top of an existing backend
func NewClientWithBackend(opts Options, backend Backend) *Client {
	return &Client{opts: opts, backend: backend}
}

// Initialized - true when a credential and backend are present
func (c *Client) Initialized() bool {
	return c != nil && c.backend != nil && c.opts.APIKey != ""
}

// APIKey - the held credential, needed to fetch finished videos
func (c *Client) APIKey() string {
	return c.opts.APIKey
}

// GenerateTextWithSearch - grounded text generation with Google Search
func (c *Client) GenerateTextWithSearch(ctx context.Context, prompt string) (*GenerationResult, error) {
	if !c.Initialized() {
		return nil, NewGenerationError(OpGenerateContent, ErrNotInitialized)
	}

	log.Printf("📝 [Gemini] Generating grounded text (model: %s, prompt length: %d)", c.opts.TextModel, len(prompt))

	resp, err := c.backend.GenerateContent(ctx, c.opts.TextModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		log.Printf("❌ [Gemini] Error generating content: %v", err)
		return nil, NewGenerationError(OpGenerateContent, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, NewGenerationError(OpGenerateContent, ErrEmptyResponse)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, NewGenerationError(OpGenerateContent, ErrEmptyResponse)
	}

	result := &GenerationResult{
		Text:    text,
		Sources: extractSources(resp.Candidates[0]),
	}

	log.Printf("✅ [Gemini] Text generated: %d chars, %d sources", len(result.Text), len(result.Sources))
	return result, nil
}

func extractSources(candidate *genai.Candidate) []SourceReference {
	sources := []SourceReference{}
	if candidate == nil || candidate.GroundingMetadata == nil {
		return sources
	}
	for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		sources = append(sources, SourceReference{
			URI:   chunk.Web.URI,
			Title: chunk.Web.Title,
		})
	}
	return sources
}

// GenerateImage - one square JPEG; results without bytes are dropped
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]GeneratedImage, error) {
	if !c.Initialized() {
		return nil, NewGenerationError(OpGenerateImage, ErrNotInitialized)
	}

	log.Printf("🎨 [Gemini] Generating image (model: %s, prompt length: %d)", c.opts.ImageModel, len(prompt))

	resp, err := c.backend.GenerateImages(ctx, c.opts.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: imageOutputMIMEType,
		AspectRatio:    imageAspectRatio,
	})
	if err != nil {
		log.Printf("❌ [Gemini] Error generating image: %v", err)
		return nil, NewGenerationError(OpGenerateImage, err)
	}

	images := []GeneratedImage{}
	if resp == nil {
		return images, nil
	}
	for _, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		mimeType := generated.Image.MIMEType
		if mimeType == "" {
			mimeType = imageOutputMIMEType
		}
		images = append(images, GeneratedImage{
			ImageBytes: base64.StdEncoding.EncodeToString(generated.Image.ImageBytes),
			MIMEType:   mimeType,
		})
	}

	log.Printf("✅ [Gemini] Received %d image(s) (%d returned by API)", len(images), len(resp.GeneratedImages))
	return images, nil
}

// GenerateVideo - starts an image-seeded video job and returns its pending handle
func (c *Client) GenerateVideo(ctx context.Context, prompt string, source UploadedImage, aspectRatio AspectRatio) (*VideoOperation, error) {
	if !c.Initialized() {
		return nil, NewGenerationError(OpStartVideo, ErrNotInitialized)
	}
	if aspectRatio != AspectRatioLandscape && aspectRatio != AspectRatioPortrait {
		return nil, NewGenerationError(OpStartVideo, fmt.Errorf("invalid aspect ratio: %q", aspectRatio))
	}

	imageBytes, err := base64.StdEncoding.DecodeString(source.Base64)
	if err != nil {
		return nil, NewGenerationError(OpStartVideo, fmt.Errorf("invalid image data: %w", err))
	}
	if len(imageBytes) == 0 {
		return nil, NewGenerationError(OpStartVideo, errors.New("image data is empty"))
	}

	log.Printf("🎬 [Gemini] Starting video generation (model: %s, aspect-ratio: %s, image: %s %s, %d bytes)",
		c.opts.VideoModel, aspectRatio, source.Name, source.MIMEType, len(imageBytes))

	op, err := c.backend.GenerateVideos(ctx, c.opts.VideoModel, prompt, &genai.Image{
		ImageBytes: imageBytes,
		MIMEType:   source.MIMEType,
	}, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    string(aspectRatio),
	})
	if err != nil {
		log.Printf("❌ [Gemini] Error starting video generation: %v", err)
		return nil, NewGenerationError(OpStartVideo, err)
	}

	operation, err := operationFromSDK(op)
	if err != nil {
		return nil, NewGenerationError(OpStartVideo, err)
	}

	log.Printf("✅ [Gemini] Video operation started: %s", operation.Name)
	return operation, nil
}

// PollVideoOperation - refreshes an operation; a finished operation is returned unchanged
func (c *Client) PollVideoOperation(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	if !c.Initialized() {
		return nil, NewGenerationError(OpPollVideo, ErrNotInitialized)
	}
	if op == nil || op.Name == "" {
		return nil, NewGenerationError(OpPollVideo, errors.New("operation has no name"))
	}
	if op.Done() {
		refreshed := *op
		return &refreshed, nil
	}

	updated, err := c.backend.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: op.Name}, nil)
	if err != nil {
		log.Printf("❌ [Gemini] Error polling video operation %s: %v", op.Name, err)
		return nil, NewGenerationError(OpPollVideo, err)
	}

	operation, err := operationFromSDK(updated)
	if err != nil {
		return nil, NewGenerationError(OpPollVideo, err)
	}
	if operation.Name == "" {
		operation.Name = op.Name
	}
	return operation, nil
}

// operationFromSDK - maps the SDK operation onto Pending / Complete / Failed
func operationFromSDK(op *genai.GenerateVideosOperation) (*VideoOperation, error) {
	if op == nil {
		return nil, ErrEmptyResponse
	}

	operation := &VideoOperation{Name: op.Name}

	switch {
	case !op.Done:
		operation.Status = Pending{}
	case op.Error != nil:
		operation.Status = Failed{Reason: operationErrorMessage(op.Error)}
	default:
		operation.Status = completedStatus(op.Response)
	}
	return operation, nil
}

func completedStatus(resp *genai.GenerateVideosResponse) OperationStatus {
	if resp != nil {
		for _, generated := range resp.GeneratedVideos {
			if generated == nil || generated.Video == nil || generated.Video.URI == "" {
				continue
			}
			return Complete{VideoURI: generated.Video.URI, MIMEType: generated.Video.MIMEType}
		}
	}

	reason := ErrNoVideoURI.Error()
	if resp != nil && len(resp.RAIMediaFilteredReasons) > 0 {
		reason = fmt.Sprintf("%s (filtered: %s)", reason, strings.Join(resp.RAIMediaFilteredReasons, "; "))
	}
	return Failed{Reason: reason}
}

func operationErrorMessage(opErr map[string]any) string {
	if msg, ok := opErr["message"].(string); ok && msg != "" {
		return msg
	}
	return fmt.Sprintf("%v", opErr)
}
