package ai

import (
	"context"
	"strings"

	"github.com/bilgisen/letterpress/internal/apperr"
)

// DefaultMaxInputChars bounds the article text sent to the model.
const DefaultMaxInputChars = 30000

// SummaryResult is the JSON shape the summary prompt asks for.
type SummaryResult struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Summarizer turns cleaned article text into a short summary.
type Summarizer struct {
	gen      Generator
	post     *PostProcessor
	maxChars int
}

func NewSummarizer(gen Generator, maxChars int) *Summarizer {
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	return &Summarizer{gen: gen, post: NewPostProcessor(), maxChars: maxChars}
}

// Summarize asks the model for a 3-4 sentence summary of text. The API key
// is used for this call only.
func (s *Summarizer) Summarize(ctx context.Context, text, apiKey string) (*SummaryResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("text to summarize is empty")
	}

	prompt := BuildSummaryPrompt(truncateRunes(text, s.maxChars))

	response, err := s.gen.Generate(ctx, apiKey, prompt, false)
	if err != nil {
		return nil, err
	}

	var result SummaryResult
	if err := ExtractJSON(response, &result); err != nil {
		return nil, err
	}
	if err := s.post.ProcessSummary(&result); err != nil {
		return nil, err
	}
	return &result, nil
}
