package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"family-doctor/internal/cache"
	"family-doctor/internal/models"
	"family-doctor/internal/repository"
	"family-doctor/internal/semantic"
)

type AdminStore interface {
	ListApproved(ctx context.Context) ([]*models.KnowledgeRecord, error)
	ListApprovedPage(ctx context.Context, limit, offset uint64) ([]*models.KnowledgeRecord, error)
	FindByID(ctx context.Context, id int64) (*models.KnowledgeRecord, error)
	ListByDoctor(ctx context.Context, doctorID int64, limit, offset uint64) ([]*models.KnowledgeRecord, error)
	Stats(ctx context.Context) (models.KnowledgeStats, error)
	UnapproveAll(ctx context.Context) (int64, error)
}

type ProtocolCounter interface {
	Count(ctx context.Context) (int64, error)
}

type SemanticAdmin interface {
	Search(ctx context.Context, query string, k int) ([]models.RetrievalResult, error)
	Rebuild(ctx context.Context, entries []semantic.Entry) (semantic.RebuildResult, error)
	Reset() int
	Stats() semantic.Stats
}

// RebuildNotifier asks the other replicas to resynchronize their semantic
// index from the knowledge store.
type RebuildNotifier interface {
	NotifyRebuild(ctx context.Context) error
}

type Stats struct {
	ExactCacheEntries int                   `json:"exact_cache_entries"`
	ExactCacheError   string                `json:"exact_cache_error,omitempty"`
	Semantic          semantic.Stats        `json:"semantic_index"`
	Knowledge         models.KnowledgeStats `json:"knowledge_store"`
	ProtocolChunks    int64                 `json:"protocol_chunks"`
}

type ResetReport struct {
	ExactRemoved    int   `json:"exact_removed"`
	Unapproved      int64 `json:"unapproved"`
	SemanticRemoved int   `json:"semantic_removed"`
}

// AdminService holds the maintenance operations on the cache tiers.
type AdminService struct {
	store     AdminStore
	protocols ProtocolCounter
	cache     cache.ExactCache
	semantic  SemanticAdmin
	notifier  RebuildNotifier
	logger    *zap.Logger
}

func NewAdminService(
	store AdminStore,
	protocols ProtocolCounter,
	exact cache.ExactCache,
	index SemanticAdmin,
	notifier RebuildNotifier,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		store:     store,
		protocols: protocols,
		cache:     exact,
		semantic:  index,
		notifier:  notifier,
		logger:    logger,
	}
}

// ResyncSemantic replays every approved record into the local semantic
// index. Replicas call it on a rebuild request, so it never broadcasts.
func (s *AdminService) ResyncSemantic(ctx context.Context) (semantic.RebuildResult, error) {
	records, err := s.store.ListApproved(ctx)
	if err != nil {
		return semantic.RebuildResult{}, fmt.Errorf("%w: %w", ErrDurableStore, err)
	}

	entries := make([]semantic.Entry, 0, len(records))
	for _, record := range records {
		entries = append(entries, semantic.Entry{Fingerprint: record.Fingerprint, Text: record.AnswerMD})
	}

	result, err := s.semantic.Rebuild(ctx, entries)
	if err != nil {
		return result, fmt.Errorf("failed to rebuild semantic index: %w", err)
	}
	return result, nil
}

// RebuildSemantic resyncs the local index and asks every other replica to
// do the same.
func (s *AdminService) RebuildSemantic(ctx context.Context) (semantic.RebuildResult, error) {
	result, err := s.ResyncSemantic(ctx)
	if err != nil {
		return result, err
	}
	s.broadcastRebuild(ctx)
	return result, nil
}

// BootstrapSemantic retries ResyncSemantic with exponential backoff until it
// succeeds or ctx ends.
func (s *AdminService) BootstrapSemantic(ctx context.Context, backoff, maxBackoff time.Duration) {
	for {
		result, err := s.ResyncSemantic(ctx)
		if err == nil {
			s.logger.Info("Semantic index bootstrapped",
				zap.Int("entries", result.Indexed),
				zap.Int("skipped", result.Skipped),
			)
			return
		}

		s.logger.Error("Semantic index bootstrap failed, retrying",
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *AdminService) ClearExact(ctx context.Context) (int, error) {
	return s.cache.Clear(ctx)
}

// ClearSemantic empties the local index only. Other replicas still mirror
// the approved records, so they have nothing to drop.
func (s *AdminService) ClearSemantic() int {
	removed := s.semantic.Reset()
	s.logger.Info("Semantic index cleared", zap.Int("removed", removed))
	return removed
}

// ResetAll clears the exact cache, un-approves every record and empties the
// semantic index, then asks the other replicas to resync. The durable step
// runs first so a failure leaves the caches consistent with the store.
func (s *AdminService) ResetAll(ctx context.Context) (*ResetReport, error) {
	unapproved, err := s.store.UnapproveAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableStore, err)
	}

	report := &ResetReport{Unapproved: unapproved}
	report.SemanticRemoved = s.ClearSemantic()
	s.broadcastRebuild(ctx)

	removed, err := s.cache.Clear(ctx)
	if err != nil {
		return report, err
	}
	report.ExactRemoved = removed

	s.logger.Info("All caches reset",
		zap.Int("exact_removed", report.ExactRemoved),
		zap.Int64("unapproved", report.Unapproved),
		zap.Int("semantic_removed", report.SemanticRemoved),
	)
	return report, nil
}

func (s *AdminService) broadcastRebuild(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyRebuild(ctx); err != nil {
		s.logger.Warn("Failed to request replica resync", zap.Error(err))
	}
}

// Stats collects entry counts from every tier. An unreachable exact cache is
// reported in the result instead of failing the call.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Semantic: s.semantic.Stats()}

	if n, err := s.cache.Len(ctx); err != nil {
		stats.ExactCacheError = err.Error()
	} else {
		stats.ExactCacheEntries = n
	}

	knowledge, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableStore, err)
	}
	stats.Knowledge = knowledge

	if s.protocols != nil {
		count, err := s.protocols.Count(ctx)
		if err != nil {
			s.logger.Warn("Failed to count protocol chunks", zap.Error(err))
		}
		stats.ProtocolChunks = count
	}

	return stats, nil
}

// Search ranks approved answers by similarity to query and keeps those
// scoring at least minScore.
func (s *AdminService) Search(ctx context.Context, query string, topK int, minScore float64) ([]models.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", ErrValidation)
	}
	if minScore < -1 || minScore > 1 {
		return nil, fmt.Errorf("%w: min_similarity must be within [-1, 1]", ErrValidation)
	}

	results, err := s.semantic.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	kept := results[:0]
	for _, r := range results {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

func (s *AdminService) ListApproved(ctx context.Context, limit, offset uint64) ([]*models.KnowledgeRecord, error) {
	records, err := s.store.ListApprovedPage(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableStore, err)
	}
	return records, nil
}

// Entry returns a record by id whether or not it is approved.
func (s *AdminService) Entry(ctx context.Context, id int64) (*models.KnowledgeRecord, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrValidation)
	}
	record, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableStore, err)
	}
	return record, nil
}

func (s *AdminService) ListByDoctor(ctx context.Context, doctorID int64, limit, offset uint64) ([]*models.KnowledgeRecord, error) {
	if doctorID <= 0 {
		return nil, fmt.Errorf("%w: doctor_id must be positive", ErrValidation)
	}
	records, err := s.store.ListByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableStore, err)
	}
	return records, nil
}
