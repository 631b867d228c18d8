package providers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON recovers a JSON payload from a raw provider reply,
// tolerating markdown code fences and surrounding prose. If neither the
// cleaned text nor the first-{ to last-} window decodes, the reply is
// ErrMalformedResponse; the caller must not retry the network call.
func ExtractJSON(raw string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(stripCodeFences(raw))
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	var parsed json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
		return parsed, nil
	}

	// Providers sometimes wrap the JSON in explanatory prose; take the
	// widest brace-delimited window.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		candidate := cleaned[start : end+1]
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return parsed, nil
		}
	}

	return nil, fmt.Errorf("%w: no JSON payload found", ErrMalformedResponse)
}

// stripCodeFences removes markdown fence markers, keeping the body.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.Contains(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.ReplaceAll(trimmed, "```json", "")
	trimmed = strings.ReplaceAll(trimmed, "```", "")
	return strings.TrimSpace(trimmed)
}
