package image

// Output formats accepted by POST /api/image
const (
	FormatJPEG = "jpeg"
	FormatWebP = "webp"
)

// GenerateImageRequest - body of POST /api/image
type GenerateImageRequest struct {
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
}

// ImagePayload - one image ready to drop into an <img src>
type ImagePayload struct {
	DataURL  string `json:"dataUrl"`
	MIMEType string `json:"mimeType"`
}

type GenerateImageResponse struct {
	Images []ImagePayload `json:"images"`
}
