package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"family-doctor/internal/llm"
)

type Intent string

const (
	IntentClinicInfo     Intent = "clinic_info"
	IntentDoctorSchedule Intent = "doctor_schedule"
	IntentDiagnose       Intent = "diagnose"
)

const intentInstruction = `You classify Ukrainian patient queries.
Return ONLY one token: clinic_info, doctor_schedule, or diagnose.

Examples:
"Де знаходиться ваша клініка?" -> clinic_info
"Який у вас номер телефону та години роботи?" -> clinic_info
"Коли приймає доктор Іваненко?" -> doctor_schedule
"Графік роботи лікаря 12?" -> doctor_schedule
"У мене два дні температура 38 і кашель." -> diagnose
"Моєму сину 5 років, болить живіт." -> diagnose`

// IntentClassifier routes assistant messages. It never picks a default on
// failure; the caller decides the fallback.
type IntentClassifier struct {
	llm    llm.Client
	logger *zap.Logger
}

func NewIntentClassifier(client llm.Client, logger *zap.Logger) *IntentClassifier {
	return &IntentClassifier{llm: client, logger: logger}
}

func (c *IntentClassifier) Classify(ctx context.Context, text string) (Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: text is required", ErrValidation)
	}

	raw, err := c.llm.Complete(ctx, llm.Prompt{System: intentInstruction, User: text})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClassification, err)
	}

	intent, err := ParseIntent(raw)
	if err != nil {
		c.logger.Warn("Unexpected intent token", zap.String("raw", raw))
		return "", err
	}

	c.logger.Debug("Intent classified", zap.String("intent", string(intent)))
	return intent, nil
}

// ParseIntent accepts a single intent token, ignoring case, surrounding
// whitespace and quotes.
func ParseIntent(raw string) (Intent, error) {
	token := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "\"'`."))
	switch intent := Intent(token); intent {
	case IntentClinicInfo, IntentDoctorSchedule, IntentDiagnose:
		return intent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownIntent, raw)
	}
}
