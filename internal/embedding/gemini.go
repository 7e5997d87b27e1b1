package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/valpere/noveltran/internal/keyring"
)

const defaultGeminiEmbeddingModel = "text-embedding-004"

// GeminiEmbedder uses the Gemini API embedContent method.
type GeminiEmbedder struct {
	model   string
	baseURL string
	keys    *keyring.Rotator
	clients map[string]*genai.Client
}

// NewGeminiEmbedder creates an embedder. An empty baseURL targets the public
// Gemini API.
func NewGeminiEmbedder(model, baseURL string, keys *keyring.Rotator) *GeminiEmbedder {
	if model == "" {
		model = defaultGeminiEmbeddingModel
	}
	return &GeminiEmbedder{model: model, baseURL: baseURL, keys: keys, clients: make(map[string]*genai.Client)}
}

func (e *GeminiEmbedder) client(ctx context.Context) (*genai.Client, error) {
	key := e.keys.Next(keyring.CategoryEmbed)
	if key == "" {
		return nil, fmt.Errorf("gemini embeddings: API key required")
	}
	if c, ok := e.clients[key]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: e.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: create client: %w", err)
	}
	e.clients[key] = c
	return c, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c, err := e.client(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, emptyVector("gemini", text)
	}
	return resp.Embeddings[0].Values, nil
}
