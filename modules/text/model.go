package text

import "portfolio-studio-server/modules/common/gemini"

// GenerateTextRequest - body of POST /api/text
type GenerateTextRequest struct {
	Prompt string `json:"prompt"`
}

// SectionResponse - generated (or placeholder) section copy
type SectionResponse struct {
	Text    string                   `json:"text"`
	Sources []gemini.SourceReference `json:"sources"`
	Error   string                   `json:"error,omitempty"`
}

func placeholder(section Section) *gemini.GenerationResult {
	return &gemini.GenerationResult{
		Text:    sectionPlaceholders[section],
		Sources: []gemini.SourceReference{},
	}
}
