package service

import (
	"MicroTrade/internal/domain/models"
)

// Predictor scores a candidate entry against a model state. It never blocks
// and never errors; with no usable state it serves its fallback heuristic.
type Predictor interface {
	Predict(features models.FeatureVector, state *models.ModelState) models.Prediction
}

// Trainer fits a fresh model state from completed trades.
type Trainer interface {
	Train(records []models.TradeRecord) (*models.ModelState, error)
}

// ModelSource exposes the currently active model state. Reads are lock-free.
type ModelSource interface {
	Active() *models.ModelState
}
