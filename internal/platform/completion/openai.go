package completion

import (
	"context"
	"errors"

	"github.com/yungbote/manike-backend/internal/platform/openai"
)

type openAIProvider struct {
	client openai.Client
}

// NewOpenAI adapts the platform OpenAI client. Prompts are sent as a single user message.
func NewOpenAI(client openai.Client) (Provider, error) {
	if client == nil {
		return nil, errors.New("openai client required")
	}
	return &openAIProvider{client: client}, nil
}

func (p *openAIProvider) Name() string { return "openai" }

func (p *openAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := p.client.GenerateText(ctx, "", prompt)
	if err != nil {
		return "", wrap(p.Name(), err)
	}
	return out, nil
}
