package text

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"portfolio-studio-server/modules/common/gemini"
	"portfolio-studio-server/modules/common/metrics"
)

var (
	ErrPromptRequired = errors.New("prompt is required")
	ErrUnknownSection = errors.New("unknown section")
)

// Generator produces grounded text.
type Generator interface {
	GenerateTextWithSearch(ctx context.Context, prompt string) (*gemini.GenerationResult, error)
}

type Service struct {
	generator Generator
	metrics   *metrics.Metrics
}

func NewService(generator Generator, m *metrics.Metrics) *Service {
	return &Service{generator: generator, metrics: m}
}

// Generate - grounded text for a free-form prompt
func (s *Service) Generate(ctx context.Context, prompt string) (*gemini.GenerationResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptRequired
	}

	log.Printf("📝 [Text] Generating grounded text (prompt length: %d)", len(prompt))
	result, err := s.generator.GenerateTextWithSearch(ctx, prompt)
	s.metrics.ObserveGeneration("text", err)
	if err != nil {
		log.Printf("❌ [Text] Generation failed: %v", err)
		return nil, err
	}

	log.Printf("✅ [Text] Generated %d chars with %d source(s)", len(result.Text), len(result.Sources))
	return result, nil
}

// GenerateSection runs the fixed prompt of a section. On failure it still
// returns the section's placeholder copy alongside the error.
func (s *Service) GenerateSection(ctx context.Context, section Section) (*gemini.GenerationResult, error) {
	prompt, ok := sectionPrompts[section]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}

	result, err := s.Generate(ctx, prompt)
	if err != nil {
		return placeholder(section), err
	}
	return result, nil
}

// Placeholders - initial copy of every section
func (s *Service) Placeholders() map[Section]*gemini.GenerationResult {
	out := make(map[Section]*gemini.GenerationResult, len(sectionPlaceholders))
	for section := range sectionPlaceholders {
		out[section] = placeholder(section)
	}
	return out
}
