package repository

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"family-doctor/internal/models"
)

const protocolsTable = "protocol_chunks"

// ProtocolRepository reads the static, pre-embedded protocol corpus.
type ProtocolRepository struct {
	db     DB
	logger *zap.Logger
}

func NewProtocolRepository(db DB, logger *zap.Logger) *ProtocolRepository {
	return &ProtocolRepository{
		db:     db,
		logger: logger,
	}
}

// SearchSimilar ranks chunks by inner product (pgvector's <#> is the negated
// inner product, so ascending order is best first).
func (r *ProtocolRepository) SearchSimilar(ctx context.Context, embedding []float32, topK int) ([]models.RetrievalResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	vector := pgvector.NewVector(embedding)

	query := squirrel.Select("content").
		Column(squirrel.Alias(squirrel.Expr("(embedding <#> ?) * -1", vector), "score")).
		From(protocolsTable).
		OrderByClause("embedding <#> ?", vector).
		Limit(uint64(topK)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search protocols: %w", err)
	}
	defer rows.Close()

	var results []models.RetrievalResult
	for rows.Next() {
		result := models.RetrievalResult{Source: models.SourceProtocol}
		if err := rows.Scan(&result.Text, &result.Score); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read protocol results: %w", err)
	}

	return results, nil
}

func (r *ProtocolRepository) Count(ctx context.Context) (int64, error) {
	query := squirrel.Select("COUNT(*)").
		From(protocolsTable).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count protocol chunks: %w", err)
	}
	return count, nil
}
