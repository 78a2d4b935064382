package semantic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"family-doctor/internal/embedding"
	"family-doctor/internal/models"
)

// ErrIndex is a degraded retrieval path (embedding or vector math failed),
// as opposed to a legitimate miss.
var ErrIndex = errors.New("semantic index failure")

// scoreEpsilon absorbs float32 rounding so a score equal to the threshold
// counts as a hit.
const scoreEpsilon = 1e-6

type Stats struct {
	Size      int     `json:"size"`
	Dimension int     `json:"dimension"`
	Threshold float64 `json:"threshold"`
}

// Entry is one approved answer, keyed by the fingerprint it was approved for.
type Entry struct {
	Fingerprint string
	Text        string
}

type RebuildResult struct {
	Indexed  int `json:"indexed"`
	Skipped  int `json:"skipped"`
	Replayed int `json:"replayed"`
}

type slot struct {
	fingerprint string
	text        string
	vector      []float32
}

// Index is an in-memory nearest-neighbour index over approved answers with
// one slot per fingerprint. Everything it holds is re-derivable from the
// knowledge store.
type Index struct {
	embedder  embedding.Embedder
	threshold float64
	logger    *zap.Logger

	rebuildMu sync.Mutex

	mu        sync.RWMutex
	dimension int
	slots     []slot
	positions map[string]int
	// journal holds inserts that land while a rebuild is embedding, so the
	// swap can replay them onto the new snapshot.
	journal    []slot
	rebuilding bool
}

func NewIndex(embedder embedding.Embedder, threshold float64, logger *zap.Logger) *Index {
	return &Index{
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
		positions: make(map[string]int),
	}
}

// Lookup returns the best match whose score reaches the threshold. Ties keep
// the earliest inserted fingerprint. An empty index reports a miss without
// embedding the query.
func (i *Index) Lookup(ctx context.Context, query string) (models.RetrievalResult, bool, error) {
	results, err := i.Search(ctx, query, 1)
	if err != nil || len(results) == 0 {
		return models.RetrievalResult{}, false, err
	}

	best := results[0]
	if best.Score+scoreEpsilon < i.threshold {
		i.logger.Debug("Semantic lookup below threshold",
			zap.Float64("score", best.Score),
			zap.Float64("threshold", i.threshold),
		)
		return models.RetrievalResult{}, false, nil
	}
	return best, true, nil
}

// Search ranks up to k entries by similarity to query, highest first, with
// no threshold applied.
func (i *Index) Search(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	if k <= 0 || i.Len() == 0 {
		return nil, nil
	}

	vector, err := i.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.slots) == 0 {
		return nil, nil
	}
	if len(vector) != i.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", ErrIndex, len(vector), i.dimension)
	}

	results := make([]models.RetrievalResult, 0, len(i.slots))
	for _, s := range i.slots {
		results = append(results, models.RetrievalResult{
			Fingerprint: s.fingerprint,
			Text:        s.text,
			Score:       embedding.Dot(s.vector, vector),
			Source:      models.SourceKnowledgeAnswer,
		})
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Insert embeds text and stores it under fingerprint. Re-promoting a
// fingerprint replaces its slot in place. The embedding call runs outside
// the writer lock.
func (i *Index) Insert(ctx context.Context, fingerprint, text string) error {
	vector, err := i.embed(ctx, text)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.dimension == 0 {
		i.dimension = len(vector)
	} else if len(vector) != i.dimension {
		return fmt.Errorf("%w: vector dimension %d, index dimension %d", ErrIndex, len(vector), i.dimension)
	}

	s := slot{fingerprint: fingerprint, text: text, vector: vector}
	i.slots = upsertSlot(i.slots, i.positions, s)
	if i.rebuilding {
		i.journal = append(i.journal, s)
	}
	return nil
}

// Rebuild replaces the index with entries. Entries that fail to embed are
// skipped and counted; inserts made while the rebuild runs are replayed on
// top of the new snapshot. When no entry can be embedded, or ctx ends, the
// previous contents stay in place.
func (i *Index) Rebuild(ctx context.Context, entries []Entry) (RebuildResult, error) {
	i.rebuildMu.Lock()
	defer i.rebuildMu.Unlock()

	i.mu.Lock()
	i.rebuilding = true
	i.journal = nil
	i.mu.Unlock()
	defer i.endRebuild()

	var result RebuildResult
	built := make([]slot, 0, len(entries))
	dimension := 0
	for n, entry := range entries {
		vector, err := i.embed(ctx, entry.Text)
		if err != nil {
			if ctx.Err() != nil {
				return result, fmt.Errorf("%w: rebuild interrupted: %w", ErrIndex, ctx.Err())
			}
			result.Skipped++
			i.logger.Warn("Skipping entry during semantic rebuild",
				zap.Int("entry", n),
				zap.String("fingerprint", entry.Fingerprint),
				zap.Error(err),
			)
			continue
		}
		if dimension == 0 {
			dimension = len(vector)
		} else if len(vector) != dimension {
			result.Skipped++
			i.logger.Warn("Skipping entry with mismatched dimension",
				zap.String("fingerprint", entry.Fingerprint),
				zap.Int("dimension", len(vector)),
				zap.Int("expected", dimension),
			)
			continue
		}
		built = append(built, slot{fingerprint: entry.Fingerprint, text: entry.Text, vector: vector})
	}

	if len(entries) > 0 && len(built) == 0 {
		return result, fmt.Errorf("%w: none of %d entries could be embedded", ErrIndex, len(entries))
	}

	slots := make([]slot, 0, len(built))
	positions := make(map[string]int, len(built))
	for _, s := range built {
		slots = upsertSlot(slots, positions, s)
	}
	result.Indexed = len(slots)

	i.mu.Lock()
	for _, s := range i.journal {
		if dimension == 0 {
			dimension = len(s.vector)
		}
		if len(s.vector) != dimension {
			i.logger.Warn("Dropping concurrent insert with mismatched dimension", zap.String("fingerprint", s.fingerprint))
			continue
		}
		slots = upsertSlot(slots, positions, s)
		result.Replayed++
	}
	i.dimension = dimension
	i.slots = slots
	i.positions = positions
	i.mu.Unlock()

	i.logger.Info("Semantic index rebuilt",
		zap.Int("size", len(slots)),
		zap.Int("skipped", result.Skipped),
		zap.Int("replayed", result.Replayed),
		zap.Int("dimension", dimension),
	)
	return result, nil
}

func (i *Index) endRebuild() {
	i.mu.Lock()
	i.rebuilding = false
	i.journal = nil
	i.mu.Unlock()
}

// Reset drops every entry and forgets the dimension.
func (i *Index) Reset() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := len(i.slots)
	i.dimension = 0
	i.slots = nil
	i.positions = make(map[string]int)
	i.journal = nil
	return removed
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.slots)
}

func (i *Index) Stats() Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return Stats{
		Size:      len(i.slots),
		Dimension: i.dimension,
		Threshold: i.threshold,
	}
}

func (i *Index) embed(ctx context.Context, text string) ([]float32, error) {
	raw, err := i.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndex, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrIndex)
	}
	vector, err := embedding.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndex, err)
	}
	return vector, nil
}

func upsertSlot(slots []slot, positions map[string]int, s slot) []slot {
	if pos, ok := positions[s.fingerprint]; ok {
		slots[pos] = s
		return slots
	}
	positions[s.fingerprint] = len(slots)
	return append(slots, s)
}
