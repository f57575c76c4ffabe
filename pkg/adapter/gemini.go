package adapter

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const (
	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"
)

// GeminiClient embeds text with a Gemini embedding model on Vertex AI
type GeminiClient struct {
	client         *genai.Client
	embeddingModel string
	dimension      int32
}

type GeminiOption func(*GeminiClient)

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

func WithEmbeddingDimension(dim int32) GeminiOption {
	return func(g *GeminiClient) {
		g.dimension = dim
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:         client,
		embeddingModel: "gemini-embedding-001",
		dimension:      768,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiClient) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, taskTypeDocument)
}

func (g *GeminiClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, taskTypeQuery)
}

func (g *GeminiClient) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	dim := g.dimension
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content", goerr.V("model", g.embeddingModel))
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("no embeddings returned", goerr.V("model", g.embeddingModel))
	}

	values := resp.Embeddings[0].Values
	Normalize(values)
	return values, nil
}
