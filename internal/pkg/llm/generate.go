package llm

import (
	"Trellis/internal/config"
	"context"
	"errors"
	log "log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Generator 文本生成协作方，业务层依赖接口方便测试替换
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string, temp float64) (string, error)
}

type Client struct{}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) Generate(ctx context.Context, systemPrompt string, userPrompt string, temp float64) (string, error) {
	resp, err := fetchModel(ctx, systemPrompt, userPrompt, temp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func fetchModel(ctx context.Context, systemPrompt string, userPrompt string, temp float64) (*llms.ContentResponse, error) {
	if err := TextSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer TextSem.Release(1)
	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(userPrompt),
			},
		},
	}
	log.Info("正在请求AI大模型")
	return llmClient.GenerateContent(ctx, messages,
		llms.WithModel(config.Cfg.LLM.TextModel),
		llms.WithTemperature(temp),
	)
}
