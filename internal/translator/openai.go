package translator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/valpere/noveltran/internal/keyring"
)

const (
	defaultOpenAIModel   = openai.GPT4oMini
	defaultOpenRouterURL = "https://openrouter.ai/api/v1"
)

// responseSchema constrains the reply when the endpoint supports
// json_schema structured output.
var responseSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"translatedLine": {Type: jsonschema.String},
		"newTerms": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"from": {Type: jsonschema.String},
					"to":   {Type: jsonschema.String},
				},
				Required:             []string{"from", "to"},
				AdditionalProperties: false,
			},
		},
	},
	Required:             []string{"translatedLine", "newTerms"},
	AdditionalProperties: false,
}

// OpenAIBackend talks to any OpenAI-compatible chat completions endpoint:
// OpenAI itself, OpenRouter, or Ollama's /v1 API.
type OpenAIBackend struct {
	model          string
	baseURL        string
	temperature    float32
	responseFormat string
	timeout        time.Duration
	keys           *keyring.Rotator
	clients        map[string]*openai.Client
}

func NewOpenAIBackend(cfg Config, keys *keyring.Rotator) *OpenAIBackend {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIBackend{
		model:          model,
		baseURL:        cfg.BaseURL,
		temperature:    cfg.Temperature,
		responseFormat: cfg.ResponseFormat,
		timeout:        timeout,
		keys:           keys,
		clients:        make(map[string]*openai.Client),
	}
}

func (b *OpenAIBackend) Name() string {
	return "openai"
}

func (b *OpenAIBackend) client() (*openai.Client, error) {
	key := b.keys.Next(keyring.CategoryTranslate)
	if key == "" {
		return nil, fmt.Errorf("API key required")
	}
	if c, ok := b.clients[key]; ok {
		return c, nil
	}
	cfg := openai.DefaultConfig(key)
	if b.baseURL != "" {
		cfg.BaseURL = b.baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: b.timeout}
	c := openai.NewClientWithConfig(cfg)
	b.clients[key] = c
	return c, nil
}

func (b *OpenAIBackend) format() *openai.ChatCompletionResponseFormat {
	switch b.responseFormat {
	case "json_object":
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	case "text", "none":
		return nil
	default:
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "line_translation",
				Schema: &responseSchema,
				Strict: true,
			},
		}
	}
}

func (b *OpenAIBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c, err := b.client()
	if err != nil {
		return "", err
	}

	resp, err := c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature:    b.temperature,
		ResponseFormat: b.format(),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from API")
	}
	return resp.Choices[0].Message.Content, nil
}
