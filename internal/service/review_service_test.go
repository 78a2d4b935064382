package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-doctor/internal/events"
	"family-doctor/internal/guard"
	"family-doctor/internal/models"
)

const pharyngitis = "Ймовірний діагноз: гострий фарингіт (sore throat, fever, cough)."

func TestEndToEndApprovalAndSemanticReuse(t *testing.T) {
	e := newEngine(pharyngitis)
	ctx := context.Background()

	first, err := e.diagnosis.Answer(ctx, sampleQuery)
	require.NoError(t, err)
	require.False(t, first.Cached)
	generated := first.Text

	record, err := e.review.Approve(ctx, first.Fingerprint, 7)
	require.NoError(t, err)
	assert.True(t, record.Approved)
	assert.Equal(t, generated, record.AnswerMD)

	stored, err := e.store.FindApproved(ctx, first.Fingerprint)
	require.NoError(t, err)
	assert.True(t, stored.Approved)
	assert.Equal(t, int64(7), *stored.ReviewerID)

	again, err := e.diagnosis.Answer(ctx, sampleQuery)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, generated, again.Text)

	paraphrase := models.DiagnosisQuery{Gender: "f", Age: 34, Symptoms: "sore throat and high fever, coughing for three days"}
	similar, err := e.diagnosis.Answer(ctx, paraphrase)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, similar.Fingerprint)
	assert.True(t, similar.Cached)
	assert.Equal(t, models.AnswerFromSemantic, similar.Source)
	assert.Equal(t, generated, similar.Text)

	assert.Equal(t, 1, e.generator.Calls())
	assert.Equal(t, []events.EventType{events.AnswerPending, events.AnswerPromoted}, e.publisher.Types())
	assert.Equal(t, []string{first.Fingerprint}, e.notifier.fps)
}

func TestApproveKeepsTiersConsistent(t *testing.T) {
	e := newEngine(pharyngitis)
	ctx := context.Background()

	first, err := e.diagnosis.Answer(ctx, sampleQuery)
	require.NoError(t, err)

	_, err = e.review.Approve(ctx, first.Fingerprint, 7)
	require.NoError(t, err)

	stored, err := e.store.FindApproved(ctx, first.Fingerprint)
	require.NoError(t, err)
	cached, ok := e.cache.Get(ctx, first.Fingerprint)
	require.True(t, ok)
	match, ok, err := e.index.Lookup(ctx, CompositeQuery("f", 34, sampleQuery.Symptoms))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, first.Text, stored.AnswerMD)
	assert.Equal(t, first.Text, cached)
	assert.Equal(t, first.Text, match.Text)
	assert.GreaterOrEqual(t, match.Score, 0.92)
}

func TestApproveTwiceUpdatesSingleRecord(t *testing.T) {
	e := newEngine(pharyngitis)
	ctx := context.Background()

	first, err := e.diagnosis.Answer(ctx, sampleQuery)
	require.NoError(t, err)

	r1, err := e.review.Approve(ctx, first.Fingerprint, 7)
	require.NoError(t, err)
	r2, err := e.review.Approve(ctx, first.Fingerprint, 9)
	require.NoError(t, err)

	assert.Equal(t, r1.ID, r2.ID)
	assert.Equal(t, int64(9), *r2.ReviewerID)

	all, err := e.store.ListApproved(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, 2, e.store.Upserts())
}

func TestApproveWithoutPendingTextConflicts(t *testing.T) {
	e := newEngine(pharyngitis)
	fp := Fingerprint("m", 50, "chest pain")

	_, err := e.review.Approve(context.Background(), fp, 7)
	assert.ErrorIs(t, err, ErrPromotionConflict)
	assert.Zero(t, e.store.Upserts())
	assert.Zero(t, e.index.Len())
}

func TestApproveFallsBackToApprovedRecord(t *testing.T) {
	e := newEngine(pharyngitis)
	ctx := context.Background()
	fp := Fingerprint("m", 50, "chest pain")
	_, err := e.store.UpsertApproved(ctx, fp, "earlier approved text", 3)
	require.NoError(t, err)

	record, err := e.review.Approve(ctx, fp, 7)
	require.NoError(t, err)
	assert.Equal(t, "earlier approved text", record.AnswerMD)

	cached, ok := e.cache.Get(ctx, fp)
	require.True(t, ok)
	assert.Equal(t, "earlier approved text", cached)
}

func TestDurableFailureLeavesCachesUntouched(t *testing.T) {
	e := newEngine(pharyngitis)
	ctx := context.Background()

	first, err := e.diagnosis.Answer(ctx, sampleQuery)
	require.NoError(t, err)
	e.store.upsertErr = errBoom

	_, err = e.review.Edit(ctx, first.Fingerprint, 7, "clinician rewrite about headache")
	assert.ErrorIs(t, err, ErrDurableStore)

	_, err = e.review.Approve(ctx, first.Fingerprint, 7)
	assert.ErrorIs(t, err, ErrDurableStore)

	cached, ok := e.cache.Get(ctx, first.Fingerprint)
	require.True(t, ok)
	assert.Equal(t, first.Text, cached)
	assert.Zero(t, e.index.Len())
	assert.Empty(t, e.notifier.fps)
	assert.Equal(t, []events.EventType{events.AnswerPending}, e.publisher.Types())
}

func TestEditPromotesSanitizedText(t *testing.T) {
	e := newEngine(pharyngitis)
	ctx := context.Background()

	first, err := e.diagnosis.Answer(ctx, sampleQuery)
	require.NoError(t, err)

	record, err := e.review.Edit(ctx, first.Fingerprint, 7, "  Вірусний фарингіт, sore throat with fever and cough\xff ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(record.AnswerMD, "Вірусний фарингіт, sore throat with fever and cough"))
	assert.True(t, strings.HasSuffix(record.AnswerMD, guard.Disclaimer))

	cached, ok := e.cache.Get(ctx, first.Fingerprint)
	require.True(t, ok)
	assert.Equal(t, record.AnswerMD, cached)

	again, err := e.diagnosis.Answer(ctx, sampleQuery)
	require.NoError(t, err)
	assert.Equal(t, record.AnswerMD, again.Text)

	assert.Equal(t, 1, e.index.Len())
	assert.True(t, e.publisher.events[1].Edited)
}

func TestEditAfterApproveReplacesSemanticEntry(t *testing.T) {
	e := newEngine(pharyngitis)
	ctx := context.Background()

	first, err := e.diagnosis.Answer(ctx, sampleQuery)
	require.NoError(t, err)
	_, err = e.review.Approve(ctx, first.Fingerprint, 7)
	require.NoError(t, err)

	edited, err := e.review.Edit(ctx, first.Fingerprint, 7, "Corrected: tonsillitis, sore throat with fever and cough")
	require.NoError(t, err)
	assert.Equal(t, 1, e.index.Len())

	paraphrase := models.DiagnosisQuery{Gender: "f", Age: 34, Symptoms: "sore throat and high fever, coughing for three days"}
	similar, err := e.diagnosis.Answer(ctx, paraphrase)
	require.NoError(t, err)
	assert.Equal(t, models.AnswerFromSemantic, similar.Source)
	assert.Equal(t, edited.AnswerMD, similar.Text)

	stored, err := e.store.FindApproved(ctx, first.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, edited.AnswerMD, stored.AnswerMD)

	_, err = e.admin.ResyncSemantic(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, e.index.Len())
	again, err := e.diagnosis.Answer(ctx, paraphrase)
	require.NoError(t, err)
	assert.Equal(t, edited.AnswerMD, again.Text)
}

func TestEditRejectsEmptyText(t *testing.T) {
	e := newEngine(pharyngitis)
	fp := Fingerprint("f", 34, sampleQuery.Symptoms)

	_, err := e.review.Edit(context.Background(), fp, 7, "  \n")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, e.store.Upserts())
}

func TestReviewValidation(t *testing.T) {
	e := newEngine(pharyngitis)
	fp := Fingerprint("f", 34, sampleQuery.Symptoms)

	_, err := e.review.Approve(context.Background(), "not-a-fingerprint", 7)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.review.Approve(context.Background(), fp, 0)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReviewStatus(t *testing.T) {
	e := newEngine(pharyngitis)
	ctx := context.Background()
	fp := Fingerprint("f", 34, sampleQuery.Symptoms)

	status, err := e.review.Status(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewNotFound, status.State)

	_, err = e.diagnosis.Answer(ctx, sampleQuery)
	require.NoError(t, err)
	status, err = e.review.Status(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, status.State)
	assert.Nil(t, status.Record)

	_, err = e.review.Approve(ctx, fp, 7)
	require.NoError(t, err)
	status, err = e.review.Status(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, status.State)
	require.NotNil(t, status.Record)
}

func TestSyncPromotionIndexesRemoteApproval(t *testing.T) {
	e := newEngine(pharyngitis)
	ctx := context.Background()
	fp := Fingerprint("f", 34, sampleQuery.Symptoms)
	_, err := e.store.UpsertApproved(ctx, fp, "remote sore throat answer", 4)
	require.NoError(t, err)

	e.review.SyncPromotion(ctx, fp)
	assert.Equal(t, 1, e.index.Len())

	e.review.SyncPromotion(ctx, Fingerprint("m", 1, "unknown"))
	assert.Equal(t, 1, e.index.Len())

	_, err = e.store.UpsertApproved(ctx, fp, "remote sore throat answer, revised", 4)
	require.NoError(t, err)
	e.review.SyncPromotion(ctx, fp)
	assert.Equal(t, 1, e.index.Len())
}
