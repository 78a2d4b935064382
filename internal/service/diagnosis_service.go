package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"family-doctor/internal/cache"
	"family-doctor/internal/events"
	"family-doctor/internal/guard"
	"family-doctor/internal/models"
	"family-doctor/internal/repository"
)

const maxAge = 130

type ApprovedFinder interface {
	FindApproved(ctx context.Context, fingerprint string) (*models.KnowledgeRecord, error)
}

type SemanticLookup interface {
	Lookup(ctx context.Context, query string) (models.RetrievalResult, bool, error)
}

type Generator interface {
	Generate(ctx context.Context, query string) (string, error)
}

// DiagnosisService answers symptom queries through the lookup ladder:
// exact cache, semantic index, knowledge store, then generation.
type DiagnosisService struct {
	cache     cache.ExactCache
	semantic  SemanticLookup
	store     ApprovedFinder
	generator Generator
	sanitizer guard.Sanitizer
	publisher events.Publisher
	ttl       time.Duration
	timeout   time.Duration
	logger    *zap.Logger

	inflight singleflight.Group
}

func NewDiagnosisService(
	exact cache.ExactCache,
	semantic SemanticLookup,
	store ApprovedFinder,
	generator Generator,
	sanitizer guard.Sanitizer,
	publisher events.Publisher,
	ttl time.Duration,
	generationTimeout time.Duration,
	logger *zap.Logger,
) *DiagnosisService {
	return &DiagnosisService{
		cache:     exact,
		semantic:  semantic,
		store:     store,
		generator: generator,
		sanitizer: sanitizer,
		publisher: publisher,
		ttl:       ttl,
		timeout:   generationTimeout,
		logger:    logger,
	}
}

// Answer returns the cheapest available answer for the query. Cache and
// store failures degrade to the next tier; generation failures are returned.
func (s *DiagnosisService) Answer(ctx context.Context, query models.DiagnosisQuery) (*models.Diagnosis, error) {
	gender := strings.ToLower(strings.TrimSpace(query.Gender))
	symptoms := s.sanitizer.Input(query.Symptoms)
	if err := validateQuery(gender, query.Age, symptoms); err != nil {
		return nil, err
	}

	fp := Fingerprint(gender, query.Age, symptoms)
	logger := s.logger.With(zap.String("fingerprint", fp))

	if text, ok := s.cache.Get(ctx, fp); ok {
		logger.Info("Exact cache hit")
		return &models.Diagnosis{Text: text, Cached: true, Fingerprint: fp, Source: models.AnswerFromExactCache}, nil
	}

	composite := CompositeQuery(gender, query.Age, symptoms)

	match, ok, err := s.semantic.Lookup(ctx, composite)
	switch {
	case err != nil:
		logger.Warn("Semantic lookup failed, falling through", zap.Error(err))
	case ok:
		logger.Info("Semantic cache hit", zap.Float64("score", match.Score))
		return &models.Diagnosis{Text: match.Text, Cached: true, Fingerprint: fp, Source: models.AnswerFromSemantic, Score: match.Score}, nil
	}

	record, err := s.store.FindApproved(ctx, fp)
	switch {
	case err == nil:
		s.cache.Put(ctx, fp, record.AnswerMD, s.ttl)
		logger.Info("Knowledge store hit", zap.Int64("record_id", record.ID))
		return &models.Diagnosis{Text: record.AnswerMD, Cached: true, Fingerprint: fp, Source: models.AnswerFromStore}, nil
	case !errors.Is(err, repository.ErrNotFound):
		logger.Warn("Knowledge store lookup failed, treating as miss", zap.Error(err))
	}

	text, err := s.generate(ctx, fp, composite)
	if err != nil {
		return nil, err
	}

	return &models.Diagnosis{Text: text, Cached: false, Fingerprint: fp, Source: models.AnswerFromGeneration}, nil
}

// generate coalesces concurrent misses for one fingerprint into a single
// LLM call. The call runs detached from the caller so a cancelled request
// neither aborts it nor leaves a partial cache write.
func (s *DiagnosisService) generate(ctx context.Context, fp, composite string) (string, error) {
	ch := s.inflight.DoChan(fp, func() (any, error) {
		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		started := time.Now()
		raw, err := s.generator.Generate(genCtx, composite)
		if err != nil {
			return "", err
		}

		text := s.sanitizer.Output(raw)
		if text == "" {
			return "", errors.New("generated answer is empty after sanitizing")
		}

		s.cache.Put(genCtx, fp, text, s.ttl)

		if err := s.publisher.Publish(genCtx, events.NewReviewEvent(events.AnswerPending, fp)); err != nil {
			s.logger.Warn("Failed to publish pending answer event", zap.String("fingerprint", fp), zap.Error(err))
		}

		s.logger.Info("Answer generated",
			zap.String("fingerprint", fp),
			zap.Duration("took", time.Since(started)),
		)
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.logger.Error("Generation failed", zap.String("fingerprint", fp), zap.Error(res.Err))
			return "", fmt.Errorf("%w: %w", ErrGeneration, res.Err)
		}
		if res.Shared {
			s.logger.Debug("Joined in-flight generation", zap.String("fingerprint", fp))
		}
		return res.Val.(string), nil
	}
}

func validateQuery(gender string, age int, symptoms string) error {
	if gender == "" {
		return fmt.Errorf("%w: gender is required", ErrValidation)
	}
	if age < 0 || age > maxAge {
		return fmt.Errorf("%w: age must be between 0 and %d", ErrValidation, maxAge)
	}
	if symptoms == "" {
		return fmt.Errorf("%w: symptoms are required", ErrValidation)
	}
	return nil
}
