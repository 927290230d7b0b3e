package ai

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/bilgisen/letterpress/internal/apperr"
)

// ExtractJSON decodes the JSON object carried by a model response into v.
//
// Accepted grammar, tried in order:
//
//	response := ws* object ws*
//	          | ws* "```" [lang] (newline | ws*) object ws* "```" ws*
//	          | text containing a fenced block with an object
//	          | text containing an object between its first "{" and last "}"
//
// lang is a run of letters, digits, '_' or '-' (e.g. "json"). Any failure
// is reported as an AI format error.
func ExtractJSON(text string, v any) error {
	var lastErr error
	for _, candidate := range jsonCandidates(text) {
		err := decodeObject(candidate, v)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return apperr.AIFormat("AI response did not contain a valid JSON object", lastErr)
}

var errNotObject = errors.New("not a JSON object")

var fencedBlock = regexp.MustCompile("(?s)```[\\w-]*\\s*(\\{.*?\\})\\s*```")

func jsonCandidates(text string) []string {
	t := strings.TrimSpace(text)
	if t == "" {
		return nil
	}

	var out []string
	if strings.HasPrefix(t, "{") {
		out = append(out, t)
	}
	if inner, ok := unfence(t); ok {
		out = append(out, inner)
	}
	for _, m := range fencedBlock.FindAllStringSubmatch(t, -1) {
		out = append(out, m[1])
	}
	if start, end := strings.Index(t, "{"), strings.LastIndex(t, "}"); start >= 0 && end > start {
		out = append(out, t[start:end+1])
	}
	return out
}

// unfence strips a fence wrapping the whole of t.
func unfence(t string) (string, bool) {
	const fence = "```"
	if len(t) < 2*len(fence) || !strings.HasPrefix(t, fence) || !strings.HasSuffix(t, fence) {
		return "", false
	}
	inner := t[len(fence) : len(t)-len(fence)]

	if i := strings.IndexByte(inner, '\n'); i >= 0 && isLangTag(strings.TrimSpace(inner[:i])) {
		inner = inner[i+1:]
	} else {
		inner = strings.TrimLeftFunc(inner, isLangRune)
	}
	return strings.TrimSpace(inner), true
}

func isLangTag(s string) bool {
	for _, r := range s {
		if !isLangRune(r) {
			return false
		}
	}
	return true
}

func isLangRune(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func decodeObject(s string, v any) error {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return errNotObject
	}
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
