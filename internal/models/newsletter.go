package models

import (
	"time"
)

// Content types accepted for an article body.
const (
	ContentMarkdown = "markdown"
	ContentHTML     = "html"
	ContentText     = "text"
)

// Article is one entry of a newsletter, filled in by hand or from the
// content extractor.
type Article struct {
	URL         string `json:"url,omitempty" validate:"omitempty,url"`
	Title       string `json:"title" validate:"max=300"`
	Content     string `json:"content" validate:"max=50000"`
	ContentType string `json:"content_type,omitempty" validate:"omitempty,oneof=markdown html text"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// Kind returns the content type, defaulting to markdown.
func (a Article) Kind() string {
	if a.ContentType == "" {
		return ContentMarkdown
	}
	return a.ContentType
}

// Newsletter is a draft: title, subject line and the ordered articles.
type Newsletter struct {
	Title    string    `json:"title" validate:"required,max=200"`
	Subject  string    `json:"subject" validate:"required,max=300"`
	Articles []Article `json:"articles" validate:"required,min=1,dive"`
}

// Validate enforces the draft invariants checked before render, export or send.
func (n Newsletter) Validate() error {
	return ValidationError(validate.Struct(n))
}

// StyleTokens are style-class overrides for the six structural slots of the
// rendered document. An empty slot means default styling. The JSON keys
// follow the shape requested from the AI provider.
type StyleTokens struct {
	Card             string `json:"card,omitempty"`
	Header           string `json:"header,omitempty"`
	MainTitle        string `json:"mainTitle,omitempty"`
	ArticleContainer string `json:"articleContainer,omitempty"`
	ArticleTitle     string `json:"articleTitle,omitempty"`
	Footer           string `json:"footer,omitempty"`
}

// IsZero reports whether no slot is set.
func (s StyleTokens) IsZero() bool {
	return s == StyleTokens{}
}

// SavedNewsletter is a persisted draft. ID is assigned on creation and never changes.
type SavedNewsletter struct {
	ID string `json:"id"`
	Newsletter
	Styles    StyleTokens `json:"styles"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Summary is the result of summarizing one article URL.
type Summary struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	ImageURL string `json:"image_url"`
}

// BulkResult reports a bulk send. Partial is set when some recipients failed.
type BulkResult struct {
	Message      string   `json:"message"`
	SentCount    int      `json:"sent_count"`
	FailedCount  int      `json:"failed_count"`
	FailedEmails []string `json:"failed_emails"`
	Partial      bool     `json:"partial"`
}
