package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"family-doctor/internal/cache"
	"family-doctor/internal/events"
	"family-doctor/internal/guard"
	"family-doctor/internal/llm"
	"family-doctor/internal/models"
	"family-doctor/internal/repository"
	"family-doctor/internal/semantic"
)

const testTTL = time.Hour

// keywordEmbedder maps text onto counts of a few symptom stems, so
// paraphrases of the same complaint land on the same direction.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

var stems = []string{"throat", "fever", "cough", "headache", "rash"}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	lower := strings.ToLower(text)
	v := make([]float32, len(stems))
	for i, stem := range stems {
		v[i] = float32(strings.Count(lower, stem))
	}
	return v, nil
}

func (e *keywordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *keywordEmbedder) Fail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

type fakeStore struct {
	mu           sync.Mutex
	records      map[string]*models.KnowledgeRecord
	order        []string
	nextID       int64
	upserts      int
	findErr      error
	upsertErr    error
	unapproveErr error
	// listFailures makes that many ListApproved calls fail first.
	listFailures int
	arrived      chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*models.KnowledgeRecord{}}
}

func (s *fakeStore) FindApproved(_ context.Context, fp string) (*models.KnowledgeRecord, error) {
	if s.arrived != nil {
		s.arrived <- struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	record, ok := s.records[fp]
	if !ok || !record.Approved {
		return nil, repository.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *fakeStore) UpsertApproved(_ context.Context, fp, answer string, reviewerID int64) (*models.KnowledgeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	s.upserts++
	record, ok := s.records[fp]
	if !ok {
		s.nextID++
		record = &models.KnowledgeRecord{ID: s.nextID, Fingerprint: fp}
		s.records[fp] = record
		s.order = append(s.order, fp)
	}
	reviewer := reviewerID
	record.AnswerMD = answer
	record.Approved = true
	record.ReviewerID = &reviewer
	record.CreatedAt = time.Now()
	copied := *record
	return &copied, nil
}

func (s *fakeStore) ListApproved(ctx context.Context) ([]*models.KnowledgeRecord, error) {
	s.mu.Lock()
	if s.listFailures > 0 {
		s.listFailures--
		s.mu.Unlock()
		return nil, errBoom
	}
	s.mu.Unlock()
	return s.ListApprovedPage(ctx, 0, 0)
}

func (s *fakeStore) FindByID(_ context.Context, id int64) (*models.KnowledgeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			copied := *r
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) ListByDoctor(_ context.Context, doctorID int64, limit, offset uint64) ([]*models.KnowledgeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.KnowledgeRecord
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.records[s.order[i]]
		if r.ReviewerID != nil && *r.ReviewerID == doctorID {
			copied := *r
			out = append(out, &copied)
		}
	}
	if offset >= uint64(len(out)) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && uint64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) ListApprovedPage(_ context.Context, limit, offset uint64) ([]*models.KnowledgeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.KnowledgeRecord
	for _, fp := range s.order {
		if r := s.records[fp]; r.Approved {
			copied := *r
			out = append(out, &copied)
		}
	}
	if limit == 0 {
		return out, nil
	}
	if offset >= uint64(len(out)) {
		return nil, nil
	}
	end := offset + limit
	if end > uint64(len(out)) {
		end = uint64(len(out))
	}
	return out[offset:end], nil
}

func (s *fakeStore) Stats(context.Context) (models.KnowledgeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := models.KnowledgeStats{Total: int64(len(s.records))}
	for _, r := range s.records {
		if r.Approved {
			stats.Approved++
		}
	}
	return stats, nil
}

func (s *fakeStore) UnapproveAll(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unapproveErr != nil {
		return 0, s.unapproveErr
	}
	var n int64
	for _, r := range s.records {
		if r.Approved {
			r.Approved = false
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) Upserts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	text    string
	err     error
	started chan struct{}
	release chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, _ string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.text, g.err
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ReviewEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.ReviewEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []events.EventType
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type recordingNotifier struct {
	mu       sync.Mutex
	fps      []string
	rebuilds int
}

func (n *recordingNotifier) Notify(_ context.Context, fp string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fps = append(n.fps, fp)
	return nil
}

func (n *recordingNotifier) NotifyRebuild(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rebuilds++
	return nil
}

func (n *recordingNotifier) Rebuilds() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rebuilds
}

type scriptedLLM struct {
	reply   string
	err     error
	prompts []llm.Prompt
}

func (l *scriptedLLM) Complete(_ context.Context, prompt llm.Prompt) (string, error) {
	l.prompts = append(l.prompts, prompt)
	return l.reply, l.err
}

func (l *scriptedLLM) Close() error { return nil }

var errBoom = errors.New("boom")

// engine wires the orchestrator and review workflow over shared fakes.
type engine struct {
	cache     *cache.MemoryCache
	index     *semantic.Index
	embedder  *keywordEmbedder
	store     *fakeStore
	generator *fakeGenerator
	publisher *recordingPublisher
	notifier  *recordingNotifier
	diagnosis *DiagnosisService
	review    *ReviewService
	admin     *AdminService
}

func newEngine(generated string) *engine {
	logger := zap.NewNop()
	e := &engine{
		cache:     cache.NewMemoryCache(testTTL, time.Minute, logger),
		embedder:  &keywordEmbedder{},
		store:     newFakeStore(),
		generator: &fakeGenerator{text: generated},
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
	}
	e.index = semantic.NewIndex(e.embedder, 0.92, logger)
	sanitizer := guard.New(1000, 2000)

	e.diagnosis = NewDiagnosisService(e.cache, e.index, e.store, e.generator, sanitizer, e.publisher, testTTL, time.Second, logger)
	e.review = NewReviewService(e.store, e.cache, e.index, sanitizer, e.notifier, e.publisher, testTTL, logger)
	e.admin = NewAdminService(e.store, nil, e.cache, e.index, e.notifier, logger)
	return e
}
