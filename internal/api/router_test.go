package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"family-doctor/internal/api/handlers"
	"family-doctor/internal/models"
	"family-doctor/internal/repository"
	"family-doctor/internal/semantic"
	"family-doctor/internal/service"
	"family-doctor/pkg/config"
)

const fp = "a3f1c2d4e5b6a7f8091a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f70"

type stubDiagnoser struct {
	diagnosis *models.Diagnosis
	err       error
	got       models.DiagnosisQuery
}

func (s *stubDiagnoser) Answer(_ context.Context, q models.DiagnosisQuery) (*models.Diagnosis, error) {
	s.got = q
	return s.diagnosis, s.err
}

type stubClassifier struct {
	intent service.Intent
	err    error
}

func (s *stubClassifier) Classify(context.Context, string) (service.Intent, error) {
	return s.intent, s.err
}

type stubReviewer struct {
	record *models.KnowledgeRecord
	status *models.ReviewStatus
	err    error
}

func (s *stubReviewer) Approve(context.Context, string, int64) (*models.KnowledgeRecord, error) {
	return s.record, s.err
}

func (s *stubReviewer) Edit(context.Context, string, int64, string) (*models.KnowledgeRecord, error) {
	return s.record, s.err
}

func (s *stubReviewer) Status(context.Context, string) (*models.ReviewStatus, error) {
	return s.status, s.err
}

type stubAdmin struct {
	err         error
	listLimit   uint64
	listOffset  uint64
	rebuildSize int
	searchTopK  int
	searchMin   float64
	doctorID    int64
}

func (s *stubAdmin) Stats(context.Context) (*service.Stats, error) {
	return &service.Stats{ExactCacheEntries: 2, ProtocolChunks: 10}, s.err
}

func (s *stubAdmin) ClearExact(context.Context) (int, error) { return 2, s.err }

func (s *stubAdmin) ClearSemantic() int { return 3 }

func (s *stubAdmin) RebuildSemantic(context.Context) (semantic.RebuildResult, error) {
	return semantic.RebuildResult{Indexed: s.rebuildSize, Skipped: 1}, s.err
}

func (s *stubAdmin) Search(_ context.Context, _ string, topK int, minScore float64) ([]models.RetrievalResult, error) {
	s.searchTopK, s.searchMin = topK, minScore
	if s.err != nil {
		return nil, s.err
	}
	return []models.RetrievalResult{{Fingerprint: fp, Text: "approved", Score: 0.93, Source: models.SourceKnowledgeAnswer}}, nil
}

func (s *stubAdmin) Entry(_ context.Context, id int64) (*models.KnowledgeRecord, error) {
	if id != 1 {
		return nil, repository.ErrNotFound
	}
	return &models.KnowledgeRecord{ID: 1, Fingerprint: fp, AnswerMD: "text"}, s.err
}

func (s *stubAdmin) ListByDoctor(_ context.Context, doctorID int64, limit, offset uint64) ([]*models.KnowledgeRecord, error) {
	s.doctorID, s.listLimit, s.listOffset = doctorID, limit, offset
	return []*models.KnowledgeRecord{{ID: 2, Fingerprint: fp, AnswerMD: "mine"}}, s.err
}

func (s *stubAdmin) ResetAll(context.Context) (*service.ResetReport, error) {
	return &service.ResetReport{ExactRemoved: 1, Unapproved: 1, SemanticRemoved: 1}, s.err
}

func (s *stubAdmin) ListApproved(_ context.Context, limit, offset uint64) ([]*models.KnowledgeRecord, error) {
	s.listLimit, s.listOffset = limit, offset
	return []*models.KnowledgeRecord{{ID: 1, Fingerprint: fp, AnswerMD: "text", Approved: true}}, s.err
}

type fixture struct {
	diagnoser  *stubDiagnoser
	classifier *stubClassifier
	reviewer   *stubReviewer
	admin      *stubAdmin
}

func newFixture() *fixture {
	reviewer := int64(7)
	return &fixture{
		diagnoser: &stubDiagnoser{diagnosis: &models.Diagnosis{
			Text: "answer", Cached: true, Fingerprint: fp, Source: models.AnswerFromExactCache,
		}},
		classifier: &stubClassifier{intent: service.IntentDiagnose},
		reviewer: &stubReviewer{
			record: &models.KnowledgeRecord{ID: 1, Fingerprint: fp, AnswerMD: "approved", Approved: true, ReviewerID: &reviewer, CreatedAt: time.Now()},
			status: &models.ReviewStatus{Fingerprint: fp, State: models.ReviewPending, Text: "pending"},
		},
		admin: &stubAdmin{rebuildSize: 4},
	}
}

func (f *fixture) do(t *testing.T, method, target, body string) (int, map[string]any) {
	t.Helper()
	logger := zap.NewNop()
	app := SetupRouter(
		handlers.NewDiagnosisHandler(f.diagnoser, f.classifier, logger),
		handlers.NewReviewHandler(f.reviewer, logger),
		handlers.NewAdminHandler(f.admin, logger),
		&config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second},
		logger,
	)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func TestDiagnoseReturnsAnswer(t *testing.T) {
	f := newFixture()

	code, body := f.do(t, http.MethodPost, "/api/v1/diagnoses", `{"gender":"f","age":34,"symptoms":"sore throat"}`)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "answer", body["diagnosis"])
	assert.Equal(t, true, body["cached"])
	assert.Equal(t, fp, body["symptoms_hash"])
	assert.Equal(t, "exact_cache", body["source"])
	assert.Equal(t, models.DiagnosisQuery{Gender: "f", Age: 34, Symptoms: "sore throat"}, f.diagnoser.got)
}

func TestDiagnoseRejectsMalformedBody(t *testing.T) {
	code, _ := newFixture().do(t, http.MethodPost, "/api/v1/diagnoses", `{"age":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: symptoms are required", service.ErrValidation), http.StatusBadRequest},
		{"generation", fmt.Errorf("%w: upstream", service.ErrGeneration), http.StatusBadGateway},
		{"durable store", fmt.Errorf("%w: down", service.ErrDurableStore), http.StatusServiceUnavailable},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.diagnoser.err = tt.err

			code, body := f.do(t, http.MethodPost, "/api/v1/diagnoses", `{"gender":"f","age":34,"symptoms":"cough"}`)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestClassifyIntent(t *testing.T) {
	f := newFixture()
	code, body := f.do(t, http.MethodPost, "/api/v1/intent", `{"text":"Де ви знаходитесь?"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "diagnose", body["intent"])

	f.classifier.err = fmt.Errorf("%w: \"maybe\"", service.ErrUnknownIntent)
	code, _ = f.do(t, http.MethodPost, "/api/v1/intent", `{"text":"hello"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestApproveAndEdit(t *testing.T) {
	f := newFixture()

	code, body := f.do(t, http.MethodPost, "/api/v1/reviews/"+fp+"/approve", `{"doctor_id":7}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "approved", body["status"])
	record := body["record"].(map[string]any)
	assert.Equal(t, float64(7), record["doctor_id"])

	code, _ = f.do(t, http.MethodPatch, "/api/v1/reviews/"+fp+"/edit", `{"doctor_id":7,"answer_md":"new"}`)
	assert.Equal(t, http.StatusOK, code)

	f.reviewer.err = fmt.Errorf("%w: no pending answer", service.ErrPromotionConflict)
	code, _ = f.do(t, http.MethodPost, "/api/v1/reviews/"+fp+"/approve", `{"doctor_id":7}`)
	assert.Equal(t, http.StatusConflict, code)
}

func TestReviewStatus(t *testing.T) {
	f := newFixture()

	code, body := f.do(t, http.MethodGet, "/api/v1/reviews/"+fp, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "pending", body["answer_md"])

	f.reviewer.status = &models.ReviewStatus{Fingerprint: fp, State: models.ReviewNotFound}
	code, body = f.do(t, http.MethodGet, "/api/v1/reviews/"+fp, "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["status"])
}

func TestAdminRoutes(t *testing.T) {
	f := newFixture()

	code, body := f.do(t, http.MethodGet, "/api/v1/admin/stats", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["exact_cache_entries"])

	code, body = f.do(t, http.MethodDelete, "/api/v1/admin/cache/exact", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["removed"])

	code, body = f.do(t, http.MethodDelete, "/api/v1/admin/cache/semantic", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["removed"])

	code, body = f.do(t, http.MethodPost, "/api/v1/admin/cache/semantic/rebuild", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(4), body["indexed"])
	assert.Equal(t, float64(1), body["skipped"])

	code, body = f.do(t, http.MethodDelete, "/api/v1/admin/cache", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["unapproved"])
}

func TestListKnowledgePagination(t *testing.T) {
	f := newFixture()

	code, body := f.do(t, http.MethodGet, "/api/v1/knowledge-base/entries", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["entries"], 1)
	assert.Equal(t, uint64(20), f.admin.listLimit)

	code, _ = f.do(t, http.MethodGet, "/api/v1/knowledge-base/entries?limit=5&offset=10", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(5), f.admin.listLimit)
	assert.Equal(t, uint64(10), f.admin.listOffset)

	code, _ = f.do(t, http.MethodGet, "/api/v1/knowledge-base/entries?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestKnowledgeEntryAndDoctorEntries(t *testing.T) {
	f := newFixture()

	code, body := f.do(t, http.MethodGet, "/api/v1/knowledge-base/entries/1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "text", body["answer_md"])

	code, _ = f.do(t, http.MethodGet, "/api/v1/knowledge-base/entries/42", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodGet, "/api/v1/knowledge-base/entries/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = f.do(t, http.MethodGet, "/api/v1/knowledge-base/doctors/7/entries?limit=3", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["entries"], 1)
	assert.Equal(t, int64(7), f.admin.doctorID)
	assert.Equal(t, uint64(3), f.admin.listLimit)
}

func TestKnowledgeSearch(t *testing.T) {
	f := newFixture()

	code, body := f.do(t, http.MethodPost, "/api/v1/knowledge-base/search", `{"query":"sore throat"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total_found"])
	results := body["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, fp, first["symptoms_hash"])
	assert.Equal(t, 0.93, first["similarity_score"])
	assert.Equal(t, 5, f.admin.searchTopK)
	assert.Equal(t, 0.8, f.admin.searchMin)

	code, _ = f.do(t, http.MethodPost, "/api/v1/knowledge-base/search", `{"query":"cough","top_k":500,"min_similarity":0}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 50, f.admin.searchTopK)
	assert.Zero(t, f.admin.searchMin)

	f.admin.err = fmt.Errorf("%w: provider down", semantic.ErrIndex)
	code, _ = f.do(t, http.MethodPost, "/api/v1/knowledge-base/search", `{"query":"cough"}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestHealth(t *testing.T) {
	code, body := newFixture().do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}
