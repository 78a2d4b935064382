package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"

	"family-doctor/pkg/config"
)

type GigaChatClient struct {
	client      *gigago.Client
	modelName   string
	temperature float32
	logger      *zap.Logger
}

func NewGigaChatClient(ctx context.Context, cfg *config.GigaChatConfig, temperature float32, logger *zap.Logger) (*GigaChatClient, error) {
	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}

	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GigaChat client: %w", err)
	}

	logger.Info("Using GigaChat model", zap.String("model", cfg.Model))

	return &GigaChatClient{
		client:      client,
		modelName:   cfg.Model,
		temperature: temperature,
		logger:      logger,
	}, nil
}

// Complete builds a fresh model handle per call since the system
// instruction lives on the model.
func (c *GigaChatClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	model := c.client.GenerativeModel(c.modelName)
	model.SystemInstruction = prompt.System
	setTemperature(&model.Temperature, c.temperature)

	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt.User},
	}

	resp, err := model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from LLM")
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *GigaChatClient) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

func setTemperature[T ~float32 | ~float64](dst *T, v float32) {
	*dst = T(v)
}
