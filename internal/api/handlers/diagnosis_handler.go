package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"family-doctor/internal/dto"
	"family-doctor/internal/models"
	"family-doctor/internal/service"
)

type Diagnoser interface {
	Answer(ctx context.Context, query models.DiagnosisQuery) (*models.Diagnosis, error)
}

type IntentClassifier interface {
	Classify(ctx context.Context, text string) (service.Intent, error)
}

type DiagnosisHandler struct {
	diagnoser  Diagnoser
	classifier IntentClassifier
	logger     *zap.Logger
}

func NewDiagnosisHandler(diagnoser Diagnoser, classifier IntentClassifier, logger *zap.Logger) *DiagnosisHandler {
	return &DiagnosisHandler{
		diagnoser:  diagnoser,
		classifier: classifier,
		logger:     logger,
	}
}

// Diagnose godoc
// @Summary Answer a symptom query
// @Description Returns a cached answer when one exists, otherwise generates a pending one
// @Tags diagnoses
// @Accept json
// @Produce json
// @Param request body dto.DiagnosisRequest true "Patient query"
// @Success 200 {object} dto.DiagnosisResponse
// @Failure 400 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/diagnoses [post]
func (h *DiagnosisHandler) Diagnose(c *fiber.Ctx) error {
	var req dto.DiagnosisRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	diagnosis, err := h.diagnoser.Answer(c.Context(), models.DiagnosisQuery{
		Gender:   req.Gender,
		Age:      req.Age,
		Symptoms: req.Symptoms,
	})
	if err != nil {
		return writeError(c, h.logger, "Diagnosis", err)
	}

	return c.JSON(dto.DiagnosisResponse{
		Diagnosis:    diagnosis.Text,
		Cached:       diagnosis.Cached,
		SymptomsHash: diagnosis.Fingerprint,
		Source:       string(diagnosis.Source),
		Score:        diagnosis.Score,
	})
}

// ClassifyIntent godoc
// @Summary Classify an assistant message
// @Description Returns clinic_info, doctor_schedule or diagnose; unrecognised output is a 422
// @Tags assistant
// @Accept json
// @Produce json
// @Param request body dto.IntentRequest true "Message"
// @Success 200 {object} dto.IntentResponse
// @Failure 422 {object} map[string]string
// @Router /api/v1/intent [post]
func (h *DiagnosisHandler) ClassifyIntent(c *fiber.Ctx) error {
	var req dto.IntentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	intent, err := h.classifier.Classify(c.Context(), req.Text)
	if err != nil {
		return writeError(c, h.logger, "Intent classification", err)
	}

	return c.JSON(dto.IntentResponse{Intent: string(intent)})
}
