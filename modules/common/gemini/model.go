package gemini

import "fmt"

// GenerationResult - grounded text plus its citations
type GenerationResult struct {
	Text    string            `json:"text"`
	Sources []SourceReference `json:"sources"`
}

// SourceReference - a web citation returned with grounded text
type SourceReference struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GeneratedImage - one generated image, base64 encoded
type GeneratedImage struct {
	ImageBytes string `json:"imageBytes"`
	MIMEType   string `json:"mimeType"`
}

// UploadedImage - user supplied seed image for video generation
type UploadedImage struct {
	Base64   string `json:"base64"`
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
}

// AspectRatio - supported video aspect ratios
type AspectRatio string

const (
	AspectRatioLandscape AspectRatio = "16:9"
	AspectRatioPortrait  AspectRatio = "9:16"
)

// ParseAspectRatio - validates a raw aspect ratio, empty means landscape
func ParseAspectRatio(raw string) (AspectRatio, error) {
	switch AspectRatio(raw) {
	case "":
		return AspectRatioLandscape, nil
	case AspectRatioLandscape, AspectRatioPortrait:
		return AspectRatio(raw), nil
	default:
		return "", fmt.Errorf("invalid aspect ratio: %s (expected 16:9 or 9:16)", raw)
	}
}

// OperationStatus is the state of a long-running video operation. It is one of
// Pending, Complete or Failed.
type OperationStatus interface {
	isOperationStatus()
}

// Pending - the operation has not finished yet
type Pending struct{}

// Complete - the operation finished and produced a fetchable video
type Complete struct {
	VideoURI string
	MIMEType string
}

// Failed - the operation finished without a usable video
type Failed struct {
	Reason string
}

func (Pending) isOperationStatus()  {}
func (Complete) isOperationStatus() {}
func (Failed) isOperationStatus()   {}

// VideoOperation - handle to a remote video generation job
type VideoOperation struct {
	Name   string
	Status OperationStatus
}

// Done - true once the operation reached a terminal status
func (op *VideoOperation) Done() bool {
	_, pending := op.Status.(Pending)
	return !pending
}
