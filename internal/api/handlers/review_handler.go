package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"family-doctor/internal/dto"
	"family-doctor/internal/models"
)

type Reviewer interface {
	Approve(ctx context.Context, fingerprint string, reviewerID int64) (*models.KnowledgeRecord, error)
	Edit(ctx context.Context, fingerprint string, reviewerID int64, newText string) (*models.KnowledgeRecord, error)
	Status(ctx context.Context, fingerprint string) (*models.ReviewStatus, error)
}

type ReviewHandler struct {
	reviewer Reviewer
	logger   *zap.Logger
}

func NewReviewHandler(reviewer Reviewer, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewer: reviewer,
		logger:   logger,
	}
}

// Approve godoc
// @Summary Approve a pending answer
// @Tags reviews
// @Accept json
// @Produce json
// @Param fingerprint path string true "Symptoms hash"
// @Param request body dto.ApproveRequest true "Reviewer"
// @Success 200 {object} dto.ReviewResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/reviews/{fingerprint}/approve [post]
func (h *ReviewHandler) Approve(c *fiber.Ctx) error {
	var req dto.ApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	record, err := h.reviewer.Approve(c.Context(), c.Params("fingerprint"), req.DoctorID)
	if err != nil {
		return writeError(c, h.logger, "Approval", err)
	}

	return c.JSON(promotedResponse(record))
}

// Edit godoc
// @Summary Edit and approve an answer
// @Tags reviews
// @Accept json
// @Produce json
// @Param fingerprint path string true "Symptoms hash"
// @Param request body dto.EditRequest true "Reviewer and new text"
// @Success 200 {object} dto.ReviewResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/reviews/{fingerprint}/edit [patch]
func (h *ReviewHandler) Edit(c *fiber.Ctx) error {
	var req dto.EditRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	record, err := h.reviewer.Edit(c.Context(), c.Params("fingerprint"), req.DoctorID, req.AnswerMD)
	if err != nil {
		return writeError(c, h.logger, "Edit", err)
	}

	return c.JSON(promotedResponse(record))
}

// Status godoc
// @Summary Review state of a fingerprint
// @Tags reviews
// @Produce json
// @Param fingerprint path string true "Symptoms hash"
// @Success 200 {object} dto.ReviewResponse
// @Router /api/v1/reviews/{fingerprint} [get]
func (h *ReviewHandler) Status(c *fiber.Ctx) error {
	status, err := h.reviewer.Status(c.Context(), c.Params("fingerprint"))
	if err != nil {
		return writeError(c, h.logger, "Review lookup", err)
	}

	resp := dto.ReviewResponse{
		Status:       string(status.State),
		SymptomsHash: status.Fingerprint,
		AnswerMD:     status.Text,
	}
	if status.Record != nil {
		record := recordResponse(status.Record)
		resp.Record = &record
	}

	code := fiber.StatusOK
	if status.State == models.ReviewNotFound {
		code = fiber.StatusNotFound
	}
	return c.Status(code).JSON(resp)
}

func promotedResponse(record *models.KnowledgeRecord) dto.ReviewResponse {
	r := recordResponse(record)
	return dto.ReviewResponse{
		Status:       string(models.ReviewApproved),
		SymptomsHash: record.Fingerprint,
		AnswerMD:     record.AnswerMD,
		Record:       &r,
	}
}

func recordResponse(record *models.KnowledgeRecord) dto.KnowledgeRecordResponse {
	return dto.KnowledgeRecordResponse{
		ID:           record.ID,
		SymptomsHash: record.Fingerprint,
		AnswerMD:     record.AnswerMD,
		Approved:     record.Approved,
		DoctorID:     record.ReviewerID,
		CreatedAt:    record.CreatedAt.Format(time.RFC3339),
	}
}
