package translator

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/valpere/noveltran/internal/keyring"
)

const defaultGeminiModel = "gemini-2.0-flash"

var geminiResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"translatedLine": {Type: genai.TypeString},
		"newTerms": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"from": {Type: genai.TypeString},
					"to":   {Type: genai.TypeString},
				},
				Required: []string{"from", "to"},
			},
		},
	},
	Required: []string{"translatedLine", "newTerms"},
}

// GeminiBackend calls the Gemini API with a response schema. An empty
// BaseURL uses the public endpoint.
type GeminiBackend struct {
	model       string
	baseURL     string
	temperature float32
	keys        *keyring.Rotator
	clients     map[string]*genai.Client
}

func NewGeminiBackend(cfg Config, keys *keyring.Rotator) *GeminiBackend {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiBackend{
		model:       model,
		baseURL:     cfg.BaseURL,
		temperature: cfg.Temperature,
		keys:        keys,
		clients:     make(map[string]*genai.Client),
	}
}

func (b *GeminiBackend) Name() string {
	return "gemini"
}

func (b *GeminiBackend) client(ctx context.Context) (*genai.Client, error) {
	key := b.keys.Next(keyring.CategoryTranslate)
	if key == "" {
		return nil, fmt.Errorf("API key required")
	}
	if c, ok := b.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: b.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	b.clients[key] = c
	return c, nil
}

func (b *GeminiBackend) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c, err := b.client(ctx)
	if err != nil {
		return "", err
	}

	resp, err := c.Models.GenerateContent(ctx, b.model, genai.Text(userPrompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(b.temperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    geminiResponseSchema,
	})
	if err != nil {
		return "", fmt.Errorf("generate content failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from API")
	}
	return text, nil
}
