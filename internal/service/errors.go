package service

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrGeneration        = errors.New("generation failed")
	ErrPromotionConflict = errors.New("nothing to approve")
	ErrDurableStore      = errors.New("durable store failure")
	ErrClassification    = errors.New("intent classification failed")
	ErrUnknownIntent     = errors.New("unknown intent")
)
