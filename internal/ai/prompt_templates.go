package ai

import (
	"fmt"
	"strings"
)

// PromptTemplates contains the prompt templates sent to the model
var PromptTemplates = struct {
	Summary string
	Style   string
}{
	Summary: `You are an editor preparing items for an email newsletter.
Summarize the following article in 3 to 4 sentences.
Write the summary in the same language as the article.

Respond with a single valid JSON object and nothing else, with these fields:
- title (string, a short headline for the article)
- summary (string, the 3-4 sentence summary)

Article:
%s`,

	Style: `You are a web design assistant specializing in Tailwind CSS.
Based on the user's request, generate a JSON object containing Tailwind CSS utility classes to style a newsletter.
The JSON object must have exactly these keys: "card", "header", "mainTitle", "articleContainer", "articleTitle", "footer".
Only provide Tailwind classes as string values for these keys. Do not add any other properties.
User's design request: "%s"

Example response for a "dark mode" request:
{
  "card": "bg-gray-900 text-gray-100 border border-gray-700",
  "header": "bg-gray-800 border-b border-gray-700",
  "mainTitle": "text-blue-400",
  "articleContainer": "p-4 rounded-lg bg-gray-800/50",
  "articleTitle": "text-blue-300",
  "footer": "bg-gray-950 border-t border-gray-800"
}`,
}

// BuildSummaryPrompt creates the summarization prompt for article text.
func BuildSummaryPrompt(text string) string {
	return fmt.Sprintf(PromptTemplates.Summary, strings.TrimSpace(text))
}

// BuildStylePrompt creates the styling prompt for a free-text design request.
func BuildStylePrompt(request string) string {
	return fmt.Sprintf(PromptTemplates.Style, escapeForPrompt(request))
}

// escapeForPrompt keeps a user request inside its quoted slot in the prompt.
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}

// truncateRunes cuts s to at most max runes without splitting a character.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
