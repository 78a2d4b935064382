package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"family-doctor/internal/cache"
	"family-doctor/internal/events"
	"family-doctor/internal/guard"
	"family-doctor/internal/models"
	"family-doctor/internal/repository"
)

type KnowledgeStore interface {
	ApprovedFinder
	UpsertApproved(ctx context.Context, fingerprint, answer string, reviewerID int64) (*models.KnowledgeRecord, error)
}

type SemanticInserter interface {
	Insert(ctx context.Context, fingerprint, text string) error
}

type ReplicaNotifier interface {
	Notify(ctx context.Context, fingerprint string) error
}

// ReviewService promotes pending answers after a clinician approves or
// edits them. The durable write always happens before any cache write.
type ReviewService struct {
	store     KnowledgeStore
	cache     cache.ExactCache
	semantic  SemanticInserter
	sanitizer guard.Sanitizer
	notifier  ReplicaNotifier
	publisher events.Publisher
	ttl       time.Duration
	logger    *zap.Logger
}

func NewReviewService(
	store KnowledgeStore,
	exact cache.ExactCache,
	semantic SemanticInserter,
	sanitizer guard.Sanitizer,
	notifier ReplicaNotifier,
	publisher events.Publisher,
	ttl time.Duration,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		store:     store,
		cache:     exact,
		semantic:  semantic,
		sanitizer: sanitizer,
		notifier:  notifier,
		publisher: publisher,
		ttl:       ttl,
		logger:    logger,
	}
}

// Approve promotes the pending text for fp. When the exact cache no longer
// holds it, an already approved record is re-promoted; otherwise the call
// fails with ErrPromotionConflict.
func (s *ReviewService) Approve(ctx context.Context, fp string, reviewerID int64) (*models.KnowledgeRecord, error) {
	if err := validateReview(fp, reviewerID); err != nil {
		return nil, err
	}

	text, ok := s.cache.Get(ctx, fp)
	if !ok {
		record, err := s.store.FindApproved(ctx, fp)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%w: no pending answer for %s", ErrPromotionConflict, fp)
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrDurableStore, err)
		}
		text = record.AnswerMD
	}

	return s.promote(ctx, fp, text, reviewerID, false)
}

// Edit replaces the answer for fp with the clinician's text and promotes it.
func (s *ReviewService) Edit(ctx context.Context, fp string, reviewerID int64, newText string) (*models.KnowledgeRecord, error) {
	if err := validateReview(fp, reviewerID); err != nil {
		return nil, err
	}

	text := s.sanitizer.Output(newText)
	if text == "" {
		return nil, fmt.Errorf("%w: answer text is required", ErrValidation)
	}

	return s.promote(ctx, fp, text, reviewerID, true)
}

// Status reports whether fp is approved, pending review or unknown.
func (s *ReviewService) Status(ctx context.Context, fp string) (*models.ReviewStatus, error) {
	if !validFingerprint(fp) {
		return nil, fmt.Errorf("%w: malformed fingerprint", ErrValidation)
	}

	record, err := s.store.FindApproved(ctx, fp)
	switch {
	case err == nil:
		return &models.ReviewStatus{Fingerprint: fp, State: models.ReviewApproved, Text: record.AnswerMD, Record: record}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: %w", ErrDurableStore, err)
	}

	if text, ok := s.cache.Get(ctx, fp); ok {
		return &models.ReviewStatus{Fingerprint: fp, State: models.ReviewPending, Text: text}, nil
	}
	return &models.ReviewStatus{Fingerprint: fp, State: models.ReviewNotFound}, nil
}

// SyncPromotion indexes an answer another replica has promoted. The shared
// exact cache is already up to date.
func (s *ReviewService) SyncPromotion(ctx context.Context, fp string) {
	record, err := s.store.FindApproved(ctx, fp)
	if err != nil {
		s.logger.Warn("Failed to load replicated promotion", zap.String("fingerprint", fp), zap.Error(err))
		return
	}
	if err := s.semantic.Insert(ctx, fp, record.AnswerMD); err != nil {
		s.logger.Error("Failed to index replicated promotion", zap.String("fingerprint", fp), zap.Error(err))
		return
	}
	s.logger.Info("Replicated promotion indexed", zap.String("fingerprint", fp))
}

func (s *ReviewService) promote(ctx context.Context, fp, text string, reviewerID int64, edited bool) (*models.KnowledgeRecord, error) {
	record, err := s.store.UpsertApproved(ctx, fp, text, reviewerID)
	if err != nil {
		s.logger.Error("Promotion aborted, durable write failed",
			zap.String("fingerprint", fp),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrDurableStore, err)
	}

	s.cache.Put(ctx, fp, text, s.ttl)

	// The record is durable; a missing index entry is restored by the next rebuild.
	if err := s.semantic.Insert(ctx, fp, text); err != nil {
		s.logger.Error("Failed to index promoted answer", zap.String("fingerprint", fp), zap.Error(err))
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, fp); err != nil {
			s.logger.Warn("Failed to notify replicas", zap.String("fingerprint", fp), zap.Error(err))
		}
	}

	event := events.NewReviewEvent(events.AnswerPromoted, fp)
	event.ReviewerID = reviewerID
	event.Edited = edited
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish promotion event", zap.String("fingerprint", fp), zap.Error(err))
	}

	s.logger.Info("Answer promoted",
		zap.String("fingerprint", fp),
		zap.Int64("doctor_id", reviewerID),
		zap.Bool("edited", edited),
	)
	return record, nil
}

func validateReview(fp string, reviewerID int64) error {
	if !validFingerprint(fp) {
		return fmt.Errorf("%w: malformed fingerprint", ErrValidation)
	}
	if reviewerID <= 0 {
		return fmt.Errorf("%w: doctor_id must be positive", ErrValidation)
	}
	return nil
}
