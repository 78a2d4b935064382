package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"family-doctor/internal/models"
)

const answersTable = "doctor_answers"

var answerColumns = []string{"id", "symptoms_hash", "answer_md", "approved", "doctor_id", "created_at"}

// upsertApprovedSuffix targets the partial unique index on approved rows.
const upsertApprovedSuffix = `ON CONFLICT (symptoms_hash) WHERE approved DO UPDATE SET
	answer_md = EXCLUDED.answer_md,
	doctor_id = EXCLUDED.doctor_id,
	created_at = NOW()
RETURNING id, symptoms_hash, answer_md, approved, doctor_id, created_at`

type KnowledgeRepository struct {
	db     DB
	logger *zap.Logger
}

func NewKnowledgeRepository(db DB, logger *zap.Logger) *KnowledgeRepository {
	return &KnowledgeRepository{
		db:     db,
		logger: logger,
	}
}

// FindApproved returns ErrNotFound when the fingerprint has no approved answer.
func (r *KnowledgeRepository) FindApproved(ctx context.Context, fingerprint string) (*models.KnowledgeRecord, error) {
	query := squirrel.Select(answerColumns...).
		From(answersTable).
		Where(squirrel.Eq{"symptoms_hash": fingerprint, "approved": true}).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	record, err := scanRecord(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find approved answer: %w", err)
	}
	return record, nil
}

// FindByID returns a record whether or not it is approved.
func (r *KnowledgeRepository) FindByID(ctx context.Context, id int64) (*models.KnowledgeRecord, error) {
	query := squirrel.Select(answerColumns...).
		From(answersTable).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	record, err := scanRecord(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find answer: %w", err)
	}
	return record, nil
}

// UpsertApproved writes the single approved answer for a fingerprint,
// overwriting text, reviewer and timestamp when one already exists.
func (r *KnowledgeRepository) UpsertApproved(ctx context.Context, fingerprint, answer string, reviewerID int64) (*models.KnowledgeRecord, error) {
	query := squirrel.Insert(answersTable).
		Columns("symptoms_hash", "answer_md", "approved", "doctor_id").
		Values(fingerprint, answer, true, reviewerID).
		Suffix(upsertApprovedSuffix).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	record, err := scanRecord(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert approved answer: %w", err)
	}

	r.logger.Info("Approved answer stored",
		zap.Int64("id", record.ID),
		zap.String("fingerprint", fingerprint),
		zap.Int64("doctor_id", reviewerID),
	)
	return record, nil
}

// ListApproved returns every approved answer in insertion order.
func (r *KnowledgeRepository) ListApproved(ctx context.Context) ([]*models.KnowledgeRecord, error) {
	return r.listApproved(ctx, 0, 0)
}

func (r *KnowledgeRepository) ListApprovedPage(ctx context.Context, limit, offset uint64) ([]*models.KnowledgeRecord, error) {
	return r.listApproved(ctx, limit, offset)
}

// ListByDoctor returns every record a reviewer signed, newest first.
func (r *KnowledgeRepository) ListByDoctor(ctx context.Context, doctorID int64, limit, offset uint64) ([]*models.KnowledgeRecord, error) {
	query := squirrel.Select(answerColumns...).
		From(answersTable).
		Where(squirrel.Eq{"doctor_id": doctorID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		Offset(offset).
		PlaceholderFormat(squirrel.Dollar)

	records, err := r.queryRecords(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor answers: %w", err)
	}
	return records, nil
}

func (r *KnowledgeRepository) listApproved(ctx context.Context, limit, offset uint64) ([]*models.KnowledgeRecord, error) {
	query := squirrel.Select(answerColumns...).
		From(answersTable).
		Where(squirrel.Eq{"approved": true}).
		OrderBy("id ASC").
		PlaceholderFormat(squirrel.Dollar)
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	records, err := r.queryRecords(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved answers: %w", err)
	}
	return records, nil
}

func (r *KnowledgeRepository) queryRecords(ctx context.Context, query squirrel.SelectBuilder) ([]*models.KnowledgeRecord, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.KnowledgeRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *KnowledgeRepository) Stats(ctx context.Context) (models.KnowledgeStats, error) {
	query := squirrel.Select("COUNT(*)", "COUNT(*) FILTER (WHERE approved)").
		From(answersTable).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return models.KnowledgeStats{}, err
	}

	var stats models.KnowledgeStats
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&stats.Total, &stats.Approved); err != nil {
		return models.KnowledgeStats{}, fmt.Errorf("failed to count answers: %w", err)
	}
	return stats, nil
}

// UnapproveAll clears the approved flag on every record. Rows are kept.
func (r *KnowledgeRepository) UnapproveAll(ctx context.Context) (int64, error) {
	query := squirrel.Update(answersTable).
		Set("approved", false).
		Where(squirrel.Eq{"approved": true}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to unapprove answers: %w", err)
	}

	r.logger.Info("Approved answers reset", zap.Int64("affected", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (*models.KnowledgeRecord, error) {
	var record models.KnowledgeRecord
	err := row.Scan(
		&record.ID, &record.Fingerprint, &record.AnswerMD, &record.Approved, &record.ReviewerID, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
