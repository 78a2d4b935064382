package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"family-doctor/internal/dto"
	"family-doctor/internal/models"
	"family-doctor/internal/semantic"
	"family-doctor/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	defaultSearchTopK    = 5
	maxSearchTopK        = 50
	defaultMinSimilarity = 0.8
)

type Administrator interface {
	Stats(ctx context.Context) (*service.Stats, error)
	ClearExact(ctx context.Context) (int, error)
	ClearSemantic() int
	RebuildSemantic(ctx context.Context) (semantic.RebuildResult, error)
	ResetAll(ctx context.Context) (*service.ResetReport, error)
	Search(ctx context.Context, query string, topK int, minScore float64) ([]models.RetrievalResult, error)
	ListApproved(ctx context.Context, limit, offset uint64) ([]*models.KnowledgeRecord, error)
	Entry(ctx context.Context, id int64) (*models.KnowledgeRecord, error)
	ListByDoctor(ctx context.Context, doctorID int64, limit, offset uint64) ([]*models.KnowledgeRecord, error)
}

type AdminHandler struct {
	admin  Administrator
	logger *zap.Logger
}

func NewAdminHandler(admin Administrator, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logger,
	}
}

// Stats godoc
// @Summary Cache and store statistics
// @Tags admin
// @Produce json
// @Success 200 {object} service.Stats
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.Context())
	if err != nil {
		return writeError(c, h.logger, "Stats", err)
	}
	return c.JSON(stats)
}

// ClearExact godoc
// @Summary Drop every exact cache entry
// @Tags admin
// @Produce json
// @Success 200 {object} dto.ClearResponse
// @Router /api/v1/admin/cache/exact [delete]
func (h *AdminHandler) ClearExact(c *fiber.Ctx) error {
	removed, err := h.admin.ClearExact(c.Context())
	if err != nil {
		return writeError(c, h.logger, "Exact cache clear", err)
	}
	return c.JSON(dto.ClearResponse{Removed: removed})
}

// ClearSemantic godoc
// @Summary Empty the semantic index
// @Tags admin
// @Produce json
// @Success 200 {object} dto.ClearResponse
// @Router /api/v1/admin/cache/semantic [delete]
func (h *AdminHandler) ClearSemantic(c *fiber.Ctx) error {
	return c.JSON(dto.ClearResponse{Removed: h.admin.ClearSemantic()})
}

// RebuildSemantic godoc
// @Summary Rebuild the semantic index from approved answers on every replica
// @Tags admin
// @Produce json
// @Success 200 {object} dto.RebuildResponse
// @Router /api/v1/admin/cache/semantic/rebuild [post]
func (h *AdminHandler) RebuildSemantic(c *fiber.Ctx) error {
	result, err := h.admin.RebuildSemantic(c.Context())
	if err != nil {
		return writeError(c, h.logger, "Semantic rebuild", err)
	}
	return c.JSON(dto.RebuildResponse{
		Indexed:  result.Indexed,
		Skipped:  result.Skipped,
		Replayed: result.Replayed,
	})
}

// ResetAll godoc
// @Summary Clear both caches and un-approve every answer
// @Tags admin
// @Produce json
// @Success 200 {object} service.ResetReport
// @Router /api/v1/admin/cache [delete]
func (h *AdminHandler) ResetAll(c *fiber.Ctx) error {
	report, err := h.admin.ResetAll(c.Context())
	if err != nil {
		return writeError(c, h.logger, "Reset", err)
	}
	return c.JSON(report)
}

// ListKnowledge godoc
// @Summary List approved answers
// @Tags knowledge-base
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.KnowledgeListResponse
// @Router /api/v1/knowledge-base/entries [get]
func (h *AdminHandler) ListKnowledge(c *fiber.Ctx) error {
	limit, offset, ok := pagination(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid pagination parameters",
		})
	}

	records, err := h.admin.ListApproved(c.Context(), limit, offset)
	if err != nil {
		return writeError(c, h.logger, "Knowledge listing", err)
	}

	return c.JSON(listResponse(records, limit, offset))
}

// GetEntry godoc
// @Summary Knowledge record by id
// @Description Returns the record whether or not it is currently approved
// @Tags knowledge-base
// @Produce json
// @Param id path int true "Record id"
// @Success 200 {object} dto.KnowledgeRecordResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/knowledge-base/entries/{id} [get]
func (h *AdminHandler) GetEntry(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid entry id",
		})
	}

	record, err := h.admin.Entry(c.Context(), int64(id))
	if err != nil {
		return writeError(c, h.logger, "Knowledge entry lookup", err)
	}
	return c.JSON(recordResponse(record))
}

// ListDoctorEntries godoc
// @Summary Records signed by one doctor
// @Tags knowledge-base
// @Produce json
// @Param doctorId path int true "Doctor id"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.KnowledgeListResponse
// @Router /api/v1/knowledge-base/doctors/{doctorId}/entries [get]
func (h *AdminHandler) ListDoctorEntries(c *fiber.Ctx) error {
	doctorID, err := c.ParamsInt("doctorId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid doctor id",
		})
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid pagination parameters",
		})
	}

	records, err := h.admin.ListByDoctor(c.Context(), int64(doctorID), limit, offset)
	if err != nil {
		return writeError(c, h.logger, "Doctor entries listing", err)
	}
	return c.JSON(listResponse(records, limit, offset))
}

// SearchKnowledge godoc
// @Summary Semantic search over approved answers
// @Tags knowledge-base
// @Accept json
// @Produce json
// @Param request body dto.KnowledgeSearchRequest true "Query"
// @Success 200 {object} dto.KnowledgeSearchResponse
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/knowledge-base/search [post]
func (h *AdminHandler) SearchKnowledge(c *fiber.Ctx) error {
	var req dto.KnowledgeSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	topK := req.TopK
	if topK == 0 {
		topK = defaultSearchTopK
	}
	if topK > maxSearchTopK {
		topK = maxSearchTopK
	}
	minScore := defaultMinSimilarity
	if req.MinSimilarity != nil {
		minScore = *req.MinSimilarity
	}

	results, err := h.admin.Search(c.Context(), req.Query, topK, minScore)
	if err != nil {
		return writeError(c, h.logger, "Knowledge search", err)
	}

	resp := dto.KnowledgeSearchResponse{
		Query:      req.Query,
		Results:    make([]dto.KnowledgeSearchResult, 0, len(results)),
		TotalFound: len(results),
	}
	for _, r := range results {
		resp.Results = append(resp.Results, dto.KnowledgeSearchResult{
			SymptomsHash:    r.Fingerprint,
			AnswerMD:        r.Text,
			SimilarityScore: r.Score,
		})
	}
	return c.JSON(resp)
}

func pagination(c *fiber.Ctx) (limit, offset uint64, ok bool) {
	l := c.QueryInt("limit", defaultPageSize)
	o := c.QueryInt("offset", 0)
	if l <= 0 || l > maxPageSize || o < 0 {
		return 0, 0, false
	}
	return uint64(l), uint64(o), true
}

func listResponse(records []*models.KnowledgeRecord, limit, offset uint64) dto.KnowledgeListResponse {
	entries := make([]dto.KnowledgeRecordResponse, 0, len(records))
	for _, record := range records {
		entries = append(entries, recordResponse(record))
	}
	return dto.KnowledgeListResponse{
		Entries: entries,
		Limit:   limit,
		Offset:  offset,
	}
}
