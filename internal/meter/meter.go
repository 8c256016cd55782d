// Package meter implements the Working Meter, the content gate applied to
// every submitted answer. Classification is a pure function of the text and
// runs identically on every call; the frontend mirrors the same rules for
// live feedback, but the server-side result is the one that counts.
package meter

import (
	"regexp"
	"strings"
)

// Level is the meter reading for a piece of text.
type Level string

const (
	Green  Level = "green"
	Yellow Level = "yellow"
	Red    Level = "red"
)

// Hard patterns block outright: violence/threat terms and personal-data
// fishing. Matched case-insensitively on whole words.
var hardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(kill|murder|rape|lynch|gas|exterminate)\b`),
	regexp.MustCompile(`(?i)\b(doxx|address|phone|ssn)\b`),
}

// Soft patterns only warn: shouting, punctuation spam, mild profanity.
// The uppercase-run rule must see the original casing.
var softPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z]{5,}`),
	regexp.MustCompile(`[!?.]{3,}`),
	regexp.MustCompile(`(?i)\b(damn|hell|crap)\b`),
}

// Texts longer than this read yellow even when otherwise clean.
const softLengthLimit = 110

// Classify returns the meter level for text. Rules apply in order, first
// match wins: empty → red, hard pattern → red, soft pattern → yellow,
// over-length → yellow, otherwise green.
func Classify(text string) Level {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Red
	}
	for _, p := range hardPatterns {
		if p.MatchString(trimmed) {
			return Red
		}
	}
	for _, p := range softPatterns {
		if p.MatchString(trimmed) {
			return Yellow
		}
	}
	if len([]rune(text)) > softLengthLimit {
		return Yellow
	}
	return Green
}
