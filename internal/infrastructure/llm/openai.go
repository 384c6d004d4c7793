// Package llm adapts an OpenAI compatible endpoint to the chat, embedding and speech ports.
package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/assistant"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/domain/voice"
	"github.com/huddlehq/huddle-server/internal/infrastructure/metrics"
)

// NewClient builds the shared OpenAI client.
func NewClient(cfg *config.Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if base := strings.TrimSpace(cfg.OpenAIBaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimSuffix(base, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.ProviderTimeout}
	return openai.NewClientWithConfig(clientCfg)
}

// ChatModel completes assistant conversations.
type ChatModel struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

var _ assistant.ChatModel = (*ChatModel)(nil)

func NewChatModel(client *openai.Client, cfg *config.Config) *ChatModel {
	return &ChatModel{
		client:      client,
		model:       cfg.ChatModel,
		maxTokens:   cfg.ChatMaxTokens,
		temperature: cfg.ChatTemperature,
	}
}

func (m *ChatModel) Complete(ctx context.Context, messages []assistant.ChatMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       m.model,
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: string(msg.Role), Content: msg.Content})
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, req)
	metrics.RecordProvider("openai", "chat", err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Embedder turns text into vectors.
type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

var _ embedding.Embedder = (*Embedder)(nil)

func NewEmbedder(client *openai.Client, cfg *config.Config) *Embedder {
	return &Embedder{client: client, model: cfg.EmbeddingModel, dimensions: cfg.EmbeddingDimensions}
}

func (e *Embedder) Model() string {
	return e.model
}

// Embed returns one vector per input, in input order.
func (e *Embedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	req := openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(e.model),
	}
	if strings.HasPrefix(e.model, "text-embedding-3") {
		req.Dimensions = e.dimensions
	}
	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	metrics.RecordProvider("openai", "embed", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, 0, len(data))
	for _, d := range data {
		out = append(out, d.Embedding)
	}
	return out, nil
}

// Speech synthesizes with the provider's stock voices. It cannot clone.
type Speech struct {
	client *openai.Client
	model  string
	voice  string
}

var _ voice.Synthesizer = (*Speech)(nil)

func NewSpeech(client *openai.Client, cfg *config.Config) *Speech {
	return &Speech{client: client, model: cfg.SpeechModel, voice: cfg.SpeechVoice}
}

func (s *Speech) DefaultVoice() string {
	return s.voice
}

// Synthesize ignores language; the stock voices follow the input text.
func (s *Speech) Synthesize(ctx context.Context, voiceID, text, _ string) (*voice.Speech, error) {
	if voiceID == "" {
		voiceID = s.voice
	}
	start := time.Now()
	raw, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	metrics.RecordProvider("openai", "speech", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("create speech: %w", err)
	}
	defer raw.Close()

	audio, err := io.ReadAll(raw)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	return &voice.Speech{Audio: audio, MimeType: "audio/mpeg"}, nil
}
