package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"family-doctor/internal/embedding"
	"family-doctor/internal/llm"
	"family-doctor/internal/models"
	"family-doctor/internal/semantic"
)

const noProtocolsFound = "Не знайдено релевантних протоколів."

const familyDoctorInstruction = `You are an assistant for Ukrainian family doctors.
Use *only* the supplied clinical guidelines, write in Ukrainian,
and structure your answer clearly.`

type ProtocolSearcher interface {
	SearchSimilar(ctx context.Context, embedding []float32, topK int) ([]models.RetrievalResult, error)
}

// GenerationService drafts an answer from the protocol corpus and the LLM.
type GenerationService struct {
	protocols ProtocolSearcher
	embedder  embedding.Embedder
	llm       llm.Client
	topK      int
	logger    *zap.Logger
}

func NewGenerationService(protocols ProtocolSearcher, embedder embedding.Embedder, client llm.Client, topK int, logger *zap.Logger) *GenerationService {
	return &GenerationService{
		protocols: protocols,
		embedder:  embedder,
		llm:       client,
		topK:      topK,
		logger:    logger,
	}
}

// SearchProtocols returns the closest protocol chunks. Failures wrap
// semantic.ErrIndex.
func (s *GenerationService) SearchProtocols(ctx context.Context, query string) ([]models.RetrievalResult, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", semantic.ErrIndex, err)
	}

	results, err := s.protocols.SearchSimilar(ctx, vector, s.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", semantic.ErrIndex, err)
	}

	s.logger.Info("Protocol search completed",
		zap.Int("results", len(results)),
	)
	return results, nil
}

// BuildContext formats protocol hits as numbered blocks with their scores.
func (s *GenerationService) BuildContext(results []models.RetrievalResult) string {
	if len(results) == 0 {
		return noProtocolsFound
	}

	var builder strings.Builder
	for i, result := range results {
		if i > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(fmt.Sprintf("Протокол %d (релевантність: %.3f):\n%s", i+1, result.Score, result.Text))
	}
	return builder.String()
}

// Generate returns the raw model output; callers sanitize it. A degraded
// protocol search still generates, with the empty-context placeholder.
func (s *GenerationService) Generate(ctx context.Context, query string) (string, error) {
	results, err := s.SearchProtocols(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		s.logger.Warn("Protocol search failed, generating without context", zap.Error(err))
		results = nil
	}

	text, err := s.llm.Complete(ctx, llm.Prompt{
		System: familyDoctorInstruction,
		User:   buildDiagnosisPrompt(query, s.BuildContext(results)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate diagnosis: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from LLM")
	}

	return text, nil
}

func buildDiagnosisPrompt(query, protocolContext string) string {
	return fmt.Sprintf(`### Симптоми пацієнта
%s

### Доступні клінічні протоколи
%s

### Завдання
1. Вкажи *ймовірний діагноз*.
2. Сформулюй *план лікування* (нумерований список).
3. Якщо даних замало, перерахуй потрібні обстеження.
Відповідай українською, не вигадуй фактів поза контекстом.`, query, protocolContext)
}
