package openai

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

type IEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type embeddingService struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewEmbedder() IEmbedder {
	model := openai.EmbeddingModel(os.Getenv("EMBEDDING_MODEL"))
	if model == "" {
		model = openai.SmallEmbedding3
	}

	return &embeddingService{
		client: openai.NewClient(os.Getenv("OPENAI_API_KEY")),
		model:  model,
	}
}

func (e *embeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding API error: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Data[0].Embedding, nil
}
