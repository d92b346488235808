package ollama

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// DecodeJSON recovers a JSON object from free-form model output. It
// strips a fenced code block wrapper if present, then slices from the
// first '{' to the last '}' and unmarshals into v. The result is
// either a decoded value or an error; it never panics, and callers
// choose what a failure means (usually an empty result for that unit
// of work).
func DecodeJSON(text string, v any) error {
	if text == "" {
		return fmt.Errorf("empty response")
	}

	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("parse response JSON: %w", err)
	}
	return nil
}
