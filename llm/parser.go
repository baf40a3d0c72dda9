package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParsedResponse is the normalized outcome of a raw model reply.
type ParsedResponse struct {
	Type string // "speech", "thought" or "goodbye"
	Text string
}

var (
	fenceRe        = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	jsonBlockRe    = regexp.MustCompile(`(?s)\{.*\}`)
	openBraceRe    = regexp.MustCompile(`(?s)\{.*`)
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	typeFieldRe    = regexp.MustCompile(`"type"\s*:\s*"(\w+)"`)
	textFieldRe    = regexp.MustCompile(`(?s)"text"\s*:\s*"(.*?)"`)
	latinCharsetRe = regexp.MustCompile(`[^A-Za-zÀ-ž0-9\s.,!?:;\-()'"%&+=/*#@\[\]_]`)
)

// bannedSubstrings mark replies where the model broke character. Matched
// case-insensitively against the final text.
var bannedSubstrings = []string{
	"jsem ai",
	"umělá inteligence",
	"language model",
	"jazykový model",
	"prompt",
	"instrukc",
	"system:",
	"json",
	"odpověď:",
	"myšlenka:",
	"jako asistent",
	"jako chatgpt",
	"openai",
	"llm",
	"token",
}

const maxPlainTextLen = 220

// Parse turns a raw model reply into a typed response. Local models wrap
// JSON in markdown fences, leave trailing commas, drop closing braces and
// misspell field values; all of that is repaired here. Returns nil when
// nothing salvageable remains or the text breaks character.
func Parse(raw string) *ParsedResponse {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil
	}

	if r := parseJSON(cleaned); r != nil {
		return finalize(r)
	}
	if r := parseFields(cleaned); r != nil {
		return finalize(r)
	}
	return finalize(parsePlainText(cleaned))
}

func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseJSON extracts and repairs the first JSON object in the reply.
func parseJSON(s string) *ParsedResponse {
	block := jsonBlockRe.FindString(s)
	if block == "" {
		// A dangling object without its closing brace still counts.
		if open := openBraceRe.FindString(s); open != "" {
			block = strings.TrimSpace(open) + "}"
		}
	}
	if block == "" {
		return nil
	}
	block = trailingComma.ReplaceAllString(block, "$1")

	var obj struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(block), &obj); err != nil {
		return nil
	}
	if obj.Text == "" {
		return nil
	}
	return &ParsedResponse{Type: normalizeType(obj.Type), Text: obj.Text}
}

// parseFields scrapes type and text fields out of JSON too broken to decode.
func parseFields(s string) *ParsedResponse {
	tm := textFieldRe.FindStringSubmatch(s)
	if tm == nil {
		return nil
	}
	kind := "speech"
	if km := typeFieldRe.FindStringSubmatch(s); km != nil {
		kind = normalizeType(km[1])
	}
	return &ParsedResponse{Type: kind, Text: tm[1]}
}

// parsePlainText salvages a reply that never attempted JSON at all.
func parsePlainText(s string) *ParsedResponse {
	line := strings.TrimSpace(s)
	for _, prefix := range []string{"Odpověď:", "Text:", "Speech:", "Reply:"} {
		if strings.HasPrefix(line, prefix) {
			line = strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	line = strings.Trim(line, `"'`)
	if line == "" || len(line) > maxPlainTextLen {
		return nil
	}
	return &ParsedResponse{Type: "speech", Text: line}
}

func normalizeType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "speech", "speach": // common model misspelling
		return "speech"
	case "thought":
		return "thought"
	case "goodbye":
		return "goodbye"
	default:
		return "speech"
	}
}

// finalize scrubs the text and applies the character filter.
func finalize(r *ParsedResponse) *ParsedResponse {
	if r == nil {
		return nil
	}
	text := latinCharsetRe.ReplaceAllString(r.Text, "")
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	for _, banned := range bannedSubstrings {
		if strings.Contains(lower, banned) {
			return nil
		}
	}
	r.Text = text
	return r
}
