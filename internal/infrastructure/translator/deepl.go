// Package translator calls a DeepL compatible translation API.
package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/huddlehq/huddle-server/internal/domain/language"
	"github.com/huddlehq/huddle-server/internal/domain/translation"
	"github.com/huddlehq/huddle-server/internal/infrastructure/metrics"
)

type translateRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// DeepL implements translation.Translator.
type DeepL struct {
	client *resty.Client
}

var _ translation.Translator = (*DeepL)(nil)

func NewDeepL(baseURL, apiKey string, timeout time.Duration) *DeepL {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Authorization", "DeepL-Auth-Key "+apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &DeepL{client: client}
}

func (d *DeepL) Translate(ctx context.Context, text, targetLanguage string) (*translation.Result, error) {
	var out translateResponse
	start := time.Now()
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(translateRequest{Text: []string{text}, TargetLang: targetCode(targetLanguage)}).
		SetResult(&out).
		Post("/v2/translate")
	metrics.RecordProvider("deepl", "translate", providerError(resp, err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("translate request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("translate request: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if len(out.Translations) == 0 {
		return nil, fmt.Errorf("translate request: empty response")
	}
	first := out.Translations[0]
	return &translation.Result{
		Text:           first.Text,
		SourceLanguage: strings.ToLower(first.DetectedSourceLanguage),
	}, nil
}

// targetCode maps a normalized tag to the provider's target code.
// Bare English and Portuguese need a variant.
func targetCode(tag string) string {
	switch tag {
	case "en":
		return "EN-US"
	case "pt":
		return "PT-PT"
	case "zh":
		return "ZH-HANS"
	}
	if language.Base(tag) == "zh" {
		return strings.ToUpper(tag)
	}
	if base, region, ok := strings.Cut(tag, "-"); ok && (base == "en" || base == "pt") {
		return strings.ToUpper(base + "-" + region)
	}
	return strings.ToUpper(language.Base(tag))
}

func providerError(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	return nil
}
