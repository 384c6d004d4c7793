// Package telemetry redacts personal data from text before it reaches logs or traces.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

// PIILevel defines how much user content survives sanitization.
type PIILevel string

const (
	// PIILevelNone redacts all user content
	PIILevelNone PIILevel = "none"
	// PIILevelHashed replaces detected PII with salted hashes
	PIILevelHashed PIILevel = "hashed"
	// PIILevelFull performs no sanitization
	PIILevelFull PIILevel = "full"
)

// ParseLevel maps a configuration value to a level. Unknown values hash.
func ParseLevel(raw string) PIILevel {
	switch PIILevel(strings.ToLower(strings.TrimSpace(raw))) {
	case PIILevelNone:
		return PIILevelNone
	case PIILevelFull:
		return PIILevelFull
	default:
		return PIILevelHashed
	}
}

type rule struct {
	pattern *regexp.Regexp
	// label is the tag of the replacement; hashed rules append a digest of the match
	label  string
	hashed bool
}

// Order matters: SSNs and card numbers would otherwise be caught by the phone rule.
var rules = []rule{
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "EMAIL", true},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "SSN", false},
	{regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`), "CC", false},
	{regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`), "PHONE", true},
	{regexp.MustCompile(`\b(?:[A-Fa-f0-9]{1,4}:){7}[A-Fa-f0-9]{1,4}\b`), "IP", true},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "IP", true},
}

// Sanitizer applies the configured PIILevel.
type Sanitizer struct {
	level PIILevel
	salt  string
}

// NewSanitizer creates a sanitizer. salt keeps hashes stable within one deployment only.
func NewSanitizer(level PIILevel, salt string) *Sanitizer {
	return &Sanitizer{level: level, salt: salt}
}

// Level returns the configured level.
func (s *Sanitizer) Level() PIILevel {
	return s.level
}

// SanitizePrompt sanitizes text a user wrote.
func (s *Sanitizer) SanitizePrompt(input string) string {
	if input == "" {
		return ""
	}
	switch s.level {
	case PIILevelNone:
		return "[REDACTED]"
	case PIILevelFull:
		return input
	default:
		return s.hashPII(input)
	}
}

// SanitizeResponse sanitizes model output, which may echo the prompt.
func (s *Sanitizer) SanitizeResponse(response string) string {
	return s.SanitizePrompt(response)
}

// Preview sanitizes input and cuts it to at most maxGraphemes user-perceived characters.
func (s *Sanitizer) Preview(input string, maxGraphemes int) string {
	out := s.SanitizePrompt(input)
	if maxGraphemes <= 0 || uniseg.GraphemeClusterCount(out) <= maxGraphemes {
		return out
	}

	var b strings.Builder
	gr := uniseg.NewGraphemes(out)
	for n := 0; n < maxGraphemes && gr.Next(); n++ {
		b.WriteString(gr.Str())
	}
	b.WriteString("…")
	return b.String()
}

// SanitizeUserID hides an identifier unless the level is full.
func (s *Sanitizer) SanitizeUserID(userID string) string {
	if userID == "" {
		return ""
	}
	switch s.level {
	case PIILevelNone:
		return "[REDACTED]"
	case PIILevelFull:
		return userID
	default:
		return s.hash(userID)
	}
}

func (s *Sanitizer) hashPII(input string) string {
	result := input
	for _, r := range rules {
		r := r
		result = r.pattern.ReplaceAllStringFunc(result, func(match string) string {
			if !r.hashed {
				return "[" + r.label + ":REDACTED]"
			}
			return "[" + r.label + ":" + s.hash(match) + "]"
		})
	}
	return result
}

// hash returns the first 8 hex chars of a salted SHA-256.
func (s *Sanitizer) hash(data string) string {
	sum := sha256.Sum256([]byte(data + s.salt))
	return hex.EncodeToString(sum[:])[:8]
}
