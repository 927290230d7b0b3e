package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/models"
)

// Styler turns a free-text design request into style tokens.
type Styler struct {
	gen  Generator
	post *PostProcessor
}

func NewStyler(gen Generator) *Styler {
	return &Styler{gen: gen, post: NewPostProcessor()}
}

// Redesign asks the model for the six style slots. JSON response mode is
// requested first; models that reject it are asked again without it and
// the fenced-JSON parser recovers the object.
func (s *Styler) Redesign(ctx context.Context, request, apiKey string) (models.StyleTokens, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return models.StyleTokens{}, apperr.Validation("design prompt is required")
	}

	prompt := BuildStylePrompt(request)

	response, err := s.gen.Generate(ctx, apiKey, prompt, true)
	if errors.Is(err, ErrJSONModeUnsupported) {
		response, err = s.gen.Generate(ctx, apiKey, prompt, false)
	}
	if err != nil {
		return models.StyleTokens{}, err
	}

	tokens, err := parseStyleTokens(response)
	if err != nil {
		return models.StyleTokens{}, err
	}
	s.post.ProcessStyles(&tokens)
	return tokens, nil
}

func parseStyleTokens(response string) (models.StyleTokens, error) {
	var raw map[string]json.RawMessage
	if err := ExtractJSON(response, &raw); err != nil {
		return models.StyleTokens{}, err
	}

	var tokens models.StyleTokens
	slots := map[string]*string{
		"card":             &tokens.Card,
		"header":           &tokens.Header,
		"mainTitle":        &tokens.MainTitle,
		"articleContainer": &tokens.ArticleContainer,
		"articleTitle":     &tokens.ArticleTitle,
		"footer":           &tokens.Footer,
	}

	found := 0
	for key, dst := range slots {
		v, ok := raw[key]
		if !ok {
			continue
		}
		// Non-string values are treated like a missing key.
		if err := json.Unmarshal(v, dst); err != nil {
			continue
		}
		found++
	}
	if found == 0 {
		return models.StyleTokens{}, apperr.AIFormat("AI response contained none of the style keys", nil)
	}
	return tokens, nil
}
