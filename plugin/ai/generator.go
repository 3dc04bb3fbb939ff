package ai

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ShouldRespond is the ternary verdict of the should-respond classifier.
type ShouldRespond string

const (
	Respond ShouldRespond = "RESPOND"
	Ignore  ShouldRespond = "IGNORE"
	Stop    ShouldRespond = "STOP"
)

// Generator is the language-model surface the pipeline depends on.
type Generator interface {
	// Complete returns free text for the prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// ClassifyShouldRespond returns IGNORE when the model output is unparseable.
	ClassifyShouldRespond(ctx context.Context, prompt string) (ShouldRespond, error)
	// ExtractStructured returns the fields the model could fill. Fields it could
	// not determine are absent from the map, never an error.
	ExtractStructured(ctx context.Context, prompt string, schema *Schema) (map[string]any, error)
}

// Embedder produces vectors for stored memories.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var shouldRespondPattern = regexp.MustCompile(`\b(RESPOND|IGNORE|STOP)\b`)

// ParseShouldRespond returns the first verdict found in text. ok is false when
// none is present, in which case IGNORE is returned.
func ParseShouldRespond(text string) (verdict ShouldRespond, ok bool) {
	match := shouldRespondPattern.FindString(strings.ToUpper(text))
	if match == "" {
		return Ignore, false
	}
	return ShouldRespond(match), true
}

var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// relaxJSON strips // line comments outside strings and trailing commas.
func relaxJSON(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		inString := false
		for j := 0; j < len(line); j++ {
			switch {
			case line[j] == '\\' && inString:
				j++
			case line[j] == '"':
				inString = !inString
			case !inString && line[j] == '/' && j+1 < len(line) && line[j+1] == '/':
				lines[i] = line[:j]
				j = len(line)
			}
		}
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

var codeFencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// ParseJSONObject extracts the first JSON object in a model reply, tolerating
// markdown fences and surrounding prose. Null values are dropped.
func ParseJSONObject(content string) (map[string]any, error) {
	content = strings.TrimSpace(content)
	if matches := codeFencePattern.FindStringSubmatch(content); len(matches) > 1 {
		content = matches[1]
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, errors.New("no JSON object in response")
	}

	var raw map[string]any
	body := content[start : end+1]
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		// Models echo the commented, trailing-comma examples from the prompts.
		if err := json.Unmarshal([]byte(relaxJSON(body)), &raw); err != nil {
			return nil, errors.Wrap(err, "JSON unmarshal failed")
		}
	}
	for key, value := range raw {
		if value == nil {
			delete(raw, key)
		}
		if s, ok := value.(string); ok && (strings.TrimSpace(s) == "" || strings.EqualFold(s, "null")) {
			delete(raw, key)
		}
	}
	return raw, nil
}

// StringField returns a trimmed string field; numbers are formatted.
func StringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
