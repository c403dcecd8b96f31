package gemini

import (
	"errors"
	"fmt"
)

// Op identifies which generation step failed
type Op string

const (
	OpGenerateContent Op = "failed to generate content"
	OpGenerateImage   Op = "failed to generate image"
	OpStartVideo      Op = "failed to start video generation"
	OpPollVideo       Op = "failed to poll video operation"
	OpVideoResult     Op = "video generation failed"
	OpFetchVideo      Op = "failed to fetch video"
	OpStoreVideo      Op = "failed to store video"
)

var (
	ErrNotInitialized = errors.New("gemini client is not initialized, check API key")
	ErrEmptyResponse  = errors.New("empty response from model")
	ErrNoVideoURI     = errors.New("video URI was not found in the operation response")
	ErrTimedOut       = errors.New("video generation timed out")
)

// GenerationError wraps every failure of the generation flows with a prefix
// naming the failed step.
type GenerationError struct {
	Op  Op
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return string(e.Op)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewGenerationError - wraps err for the given step; an existing GenerationError is kept as is
func NewGenerationError(op Op, err error) error {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return err
	}
	return &GenerationError{Op: op, Err: err}
}
