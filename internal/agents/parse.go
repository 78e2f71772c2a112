package agents

import "strings"

// extractJSON pulls the first JSON value of the expected kind out of a
// provider response, tolerating surrounding prose and markdown code
// fences. Returns "" when no candidate is found.
func extractJSON(text string, open, close byte) string {
	text = stripFences(text)

	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return ""
	}

	return text[start : end+1]
}

func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}
