package ai

import (
	"regexp"
	"strings"
)

var (
	jsonBlockPattern      = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")
	jsonObjectPattern     = regexp.MustCompile(`(?s)\{.*\}`)
	jsonArrayBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*\\])\\s*```")
	jsonArrayPattern      = regexp.MustCompile(`(?s)\[.*\]`)
	trailingCommaPattern  = regexp.MustCompile(`,\s*([}\]])`)
)

// extractJSON достаёт JSON объект из ответа модели, в том числе из markdown блока.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		return clean(m[1])
	}
	return clean(jsonObjectPattern.FindString(content))
}

func extractJSONArray(content string) string {
	if m := jsonArrayBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		return clean(m[1])
	}
	return clean(jsonArrayPattern.FindString(content))
}

func clean(raw string) string {
	return trailingCommaPattern.ReplaceAllString(strings.TrimSpace(raw), "$1")
}
