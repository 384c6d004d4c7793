// Package voiceclone talks to an ElevenLabs compatible voice cloning and speech API.
package voiceclone

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/huddlehq/huddle-server/internal/domain/language"
	"github.com/huddlehq/huddle-server/internal/domain/voice"
	"github.com/huddlehq/huddle-server/internal/infrastructure/metrics"
)

// ElevenLabs implements voice.Cloner and voice.Synthesizer.
type ElevenLabs struct {
	client       *resty.Client
	model        string
	defaultVoice string
}

var (
	_ voice.Cloner      = (*ElevenLabs)(nil)
	_ voice.Synthesizer = (*ElevenLabs)(nil)
)

func NewElevenLabs(baseURL, apiKey, model, defaultVoice string, timeout time.Duration) *ElevenLabs {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("xi-api-key", apiKey).
		SetTimeout(timeout)
	return &ElevenLabs{client: client, model: model, defaultVoice: defaultVoice}
}

func (e *ElevenLabs) DefaultVoice() string {
	return e.defaultVoice
}

// Clone uploads the sample clips and returns the provider voice id.
func (e *ElevenLabs) Clone(ctx context.Context, name string, clips []voice.Clip) (string, error) {
	var out struct {
		VoiceID string `json:"voice_id"`
	}
	req := e.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"name": name}).
		SetResult(&out)
	for i, clip := range clips {
		fileName := clip.Name
		if fileName == "" {
			fileName = fmt.Sprintf("sample-%d", i+1)
		}
		req.SetMultipartField("files", fileName, clip.MimeType, bytes.NewReader(clip.Data))
	}

	start := time.Now()
	resp, err := req.Post("/v1/voices/add")
	metrics.RecordProvider("elevenlabs", "clone", providerError(resp, err), time.Since(start))
	if err != nil {
		return "", fmt.Errorf("clone voice: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("clone voice: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out.VoiceID == "" {
		return "", fmt.Errorf("clone voice: response has no voice_id")
	}
	return out.VoiceID, nil
}

// Delete removes a cloned voice. A voice the provider no longer knows is treated as deleted.
func (e *ElevenLabs) Delete(ctx context.Context, voiceID string) error {
	resp, err := e.client.R().
		SetContext(ctx).
		SetPathParam("voice", voiceID).
		Delete("/v1/voices/{voice}")
	if err != nil {
		return fmt.Errorf("delete voice: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	if resp.IsError() {
		return fmt.Errorf("delete voice: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

type speechRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, voiceID, text, lang string) (*voice.Speech, error) {
	if voiceID == "" {
		voiceID = e.defaultVoice
	}
	body := speechRequest{Text: text, ModelID: e.model}
	// only the v2.5 models accept an explicit language
	if lang != "" && strings.Contains(e.model, "v2_5") {
		body.LanguageCode = language.Base(lang)
	}

	start := time.Now()
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Accept", "audio/mpeg").
		SetPathParam("voice", voiceID).
		SetBody(body).
		Post("/v1/text-to-speech/{voice}")
	metrics.RecordProvider("elevenlabs", "speech", providerError(resp, err), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("synthesize: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}

	mimeType := resp.Header().Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}
	return &voice.Speech{Audio: resp.Body(), MimeType: mimeType}, nil
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
