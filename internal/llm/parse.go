package llm

import (
	"regexp"
	"strings"
)

var codeFence = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```$")

// StripCodeFence removes markdown code-block formatting some models wrap
// around JSON answers, e.g. ```json\n{...}\n```.
func StripCodeFence(response string) string {
	response = strings.TrimSpace(response)
	if matches := codeFence.FindStringSubmatch(response); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return response
}

// ExtractJSON returns the outermost {...} object embedded in a completion.
// Models frequently surround the JSON with prose; everything outside the
// braces is discarded.
func ExtractJSON(response string) (string, bool) {
	response = StripCodeFence(response)
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return response[start : end+1], true
}

// Clamp bounds an integer score to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
