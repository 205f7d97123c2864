package completion

import (
	"context"
	"errors"
	"strings"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type EinoConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type einoProvider struct {
	cm model.BaseChatModel
}

// NewEino builds a provider on top of an eino OpenAI-compatible chat model.
func NewEino(ctx context.Context, cfg EinoConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("eino provider: api key required")
	}
	cm, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return NewEinoFromModel(cm)
}

func NewEinoFromModel(cm model.BaseChatModel) (Provider, error) {
	if cm == nil {
		return nil, errors.New("eino provider: chat model required")
	}
	return &einoProvider{cm: cm}, nil
}

func (p *einoProvider) Name() string { return "eino" }

func (p *einoProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.cm.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", wrap(p.Name(), err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", wrap(p.Name(), errors.New("empty completion"))
	}
	return resp.Content, nil
}
