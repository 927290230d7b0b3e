package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bilgisen/letterpress/internal/apperr"
)

// ErrJSONModeUnsupported is wrapped when the model rejects the JSON
// response-mode flag, so callers can retry with a plain prompt.
var ErrJSONModeUnsupported = errors.New("json response mode not supported by model")

// Generator produces a text completion for a prompt using the caller's API key.
type Generator interface {
	Generate(ctx context.Context, apiKey, prompt string, jsonMode bool) (string, error)
}

type GeminiClient struct {
	client  *resty.Client
	model   string
	baseURL string
}

// GeminiOptions configures a GeminiClient. Zero values select defaults.
type GeminiOptions struct {
	Model   string
	BaseURL string
	Timeout time.Duration
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}

func NewGeminiClient(opts GeminiOptions) *GeminiClient {
	if opts.Model == "" {
		opts.Model = "gemini-1.5-flash"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &GeminiClient{
		client:  resty.New().SetTimeout(opts.Timeout),
		model:   opts.Model,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// Generate calls generateContent and returns the concatenated text of the
// first candidate. jsonMode asks the model for an application/json response.
func (g *GeminiClient) Generate(ctx context.Context, apiKey, prompt string, jsonMode bool) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", apperr.Validation("API key is required for AI services")
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)

	req := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{
				Text: prompt,
			}},
		}},
	}
	if jsonMode {
		req.GenerationConfig = &generationConfig{ResponseMimeType: "application/json", Temperature: 0.4}
	}

	var result geminiResponse
	var apiErr geminiError
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		// Header rather than query parameter keeps the key out of URLs and logs.
		SetHeader("x-goog-api-key", apiKey).
		SetBody(req).
		SetResult(&result).
		SetError(&apiErr).
		Post(url)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.Upstream("AI request timed out", err)
		}
		return "", apperr.Upstream("AI request failed", err)
	}

	if resp.IsError() {
		return "", classifyError(resp.StatusCode(), apiErr, jsonMode)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", apperr.Upstream("AI provider blocked the prompt: "+result.PromptFeedback.BlockReason, nil)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", apperr.AIFormat("no content in AI response", nil)
	}

	var b strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

func classifyError(status int, apiErr geminiError, jsonMode bool) error {
	msg := http.StatusText(status)
	var reasons []string
	if apiErr.Error != nil {
		if apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		for _, d := range apiErr.Error.Details {
			reasons = append(reasons, d.Reason)
		}
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden ||
		strings.Contains(msg, "API key not valid") || contains(reasons, "API_KEY_INVALID") {
		return apperr.Authentication("The provided Gemini API key is not valid", errors.New(msg))
	}

	lower := strings.ToLower(msg)
	if jsonMode && status == http.StatusBadRequest &&
		(strings.Contains(lower, "response_mime_type") || strings.Contains(lower, "responsemimetype")) {
		return apperr.Upstream(msg, ErrJSONModeUnsupported)
	}

	return apperr.Upstream(fmt.Sprintf("AI provider returned %d: %s", status, msg), nil)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
