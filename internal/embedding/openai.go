package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/valpere/noveltran/internal/keyring"
)

const defaultOpenAIEmbeddingModel = openai.SmallEmbedding3

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	model   openai.EmbeddingModel
	baseURL string
	keys    *keyring.Rotator
	clients map[string]*openai.Client
}

// NewOpenAIEmbedder creates an embedder. An empty baseURL targets api.openai.com.
func NewOpenAIEmbedder(model, baseURL string, keys *keyring.Rotator) *OpenAIEmbedder {
	m := openai.EmbeddingModel(model)
	if model == "" {
		m = defaultOpenAIEmbeddingModel
	}
	return &OpenAIEmbedder{
		model:   m,
		baseURL: baseURL,
		keys:    keys,
		clients: make(map[string]*openai.Client),
	}
}

func (e *OpenAIEmbedder) client() (*openai.Client, error) {
	key := e.keys.Next(keyring.CategoryEmbed)
	if key == "" {
		return nil, fmt.Errorf("openai embeddings: API key required")
	}
	if c, ok := e.clients[key]; ok {
		return c, nil
	}
	cfg := openai.DefaultConfig(key)
	if e.baseURL != "" {
		cfg.BaseURL = e.baseURL
	}
	c := openai.NewClientWithConfig(cfg)
	e.clients[key] = c
	return c, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c, err := e.client()
	if err != nil {
		return nil, err
	}

	resp, err := c.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, emptyVector("openai", text)
	}
	return resp.Data[0].Embedding, nil
}
