package ai

import (
	"regexp"
	"strings"

	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/models"
)

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// A class token survives only if it is made of characters that appear in
// utility class names, arbitrary values and variants included.
var classToken = regexp.MustCompile(`^[A-Za-z0-9_\-:/.\[\]#%()!,=&>*'+@~]+$`)

type PostProcessor struct {
	maxTitleLength int
	maxClassLength int
}

func NewPostProcessor() *PostProcessor {
	return &PostProcessor{
		maxTitleLength: 120,
		maxClassLength: 500,
	}
}

// ProcessSummary validates and cleans a model-produced summary in place.
func (p *PostProcessor) ProcessSummary(s *SummaryResult) error {
	s.Summary = p.cleanText(s.Summary)
	if s.Summary == "" {
		return apperr.AIFormat("AI response is missing the summary field", nil)
	}

	s.Title = p.cleanText(s.Title)
	if r := []rune(s.Title); len(r) > p.maxTitleLength {
		s.Title = string(r[:p.maxTitleLength-3]) + "..."
	}
	return nil
}

// ProcessStyles normalizes every style slot.
func (p *PostProcessor) ProcessStyles(s *models.StyleTokens) {
	for _, f := range []*string{&s.Card, &s.Header, &s.MainTitle, &s.ArticleContainer, &s.ArticleTitle, &s.Footer} {
		*f = p.cleanClasses(*f)
	}
}

// cleanText removes unwanted characters and normalizes whitespace
func (p *PostProcessor) cleanText(s string) string {
	s = controlChars.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func (p *PostProcessor) cleanClasses(s string) string {
	var kept []string
	for _, tok := range strings.Fields(p.cleanText(s)) {
		if classToken.MatchString(tok) {
			kept = append(kept, tok)
		}
	}
	s = strings.Join(kept, " ")
	if len(s) > p.maxClassLength {
		s = s[:p.maxClassLength]
		if i := strings.LastIndexByte(s, ' '); i > 0 {
			s = s[:i]
		}
	}
	return s
}
