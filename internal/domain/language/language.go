// Package language validates the language codes used for translation, speech and user preferences.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// supported ISO 639-1 base codes accepted by the translation and speech providers.
var supported = map[string]bool{
	"ar": true, "bg": true, "cs": true, "da": true, "de": true, "el": true, "en": true,
	"es": true, "et": true, "fi": true, "fr": true, "hi": true, "hu": true, "id": true,
	"it": true, "ja": true, "ko": true, "lt": true, "lv": true, "nb": true, "nl": true,
	"pl": true, "pt": true, "ro": true, "ru": true, "sk": true, "sl": true, "sv": true,
	"tr": true, "uk": true, "vi": true, "zh": true,
}

var englishNames = display.English.Languages()

// Normalize parses a BCP 47 tag such as "pt_BR" and returns its lowercase base plus an explicit
// script or region ("pt-br", "zh-hans", "es-419").
func Normalize(raw string) (string, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
	if cleaned == "" {
		return "", fmt.Errorf("language is required")
	}
	tag, err := language.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q", raw)
	}
	base, confidence := tag.Base()
	if confidence == language.No || !supported[base.String()] {
		return "", fmt.Errorf("unsupported language %q", raw)
	}

	out := base.String()
	if script, c := tag.Script(); c == language.Exact {
		out += "-" + strings.ToLower(script.String())
	} else if region, c := tag.Region(); c == language.Exact {
		out += "-" + strings.ToLower(region.String())
	}
	return out, nil
}

// IsValid reports whether raw normalizes.
func IsValid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}

// Base returns the two letter code of a normalized tag.
func Base(tag string) string {
	base, _, _ := strings.Cut(tag, "-")
	return base
}

// Name returns the English name of the tag's base language.
func Name(tag string) string {
	base := Base(tag)
	if !supported[base] {
		return tag
	}
	if name := englishNames.Name(language.Make(base)); name != "" {
		return name
	}
	return tag
}
