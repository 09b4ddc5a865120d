// Package learning turns the ledger's completed trades into fresh model
// states and swaps them in without ever blocking a trading decision.
package learning

import (
	"errors"
	"fmt"
	"time"

	"MicroTrade/internal/domain/models"
	"MicroTrade/internal/services/predict"
)

// ErrTrainingSkipped is the non-fatal outcome when the ledger cannot yield a
// usable dataset yet. The active model state stays untouched.
var ErrTrainingSkipped = errors.New("training skipped")

// TrainerConfig tunes dataset requirements and the fit itself.
type TrainerConfig struct {
	MinTrainingTrades int
	Fit               predict.FitOptions
}

func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MinTrainingTrades: 20,
		Fit:               predict.DefaultFitOptions(),
	}
}

// LogitTrainer fits a standard scaler plus logistic regression over the
// recorded feature vectors, labeling each trade by net profitability.
type LogitTrainer struct {
	cfg TrainerConfig
}

func NewLogitTrainer(cfg TrainerConfig) *LogitTrainer {
	return &LogitTrainer{cfg: cfg}
}

func (t *LogitTrainer) Train(records []models.TradeRecord) (*models.ModelState, error) {
	if len(records) < t.cfg.MinTrainingTrades {
		return nil, fmt.Errorf("%w: %d trades, need %d", ErrTrainingSkipped, len(records), t.cfg.MinTrainingTrades)
	}

	x := make([][]float64, 0, len(records))
	y := make([]float64, 0, len(records))
	wins := 0
	for _, rec := range records {
		x = append(x, rec.Features.Slice())
		if rec.Win() {
			y = append(y, 1)
			wins++
		} else {
			y = append(y, 0)
		}
	}
	if wins == 0 || wins == len(records) {
		return nil, fmt.Errorf("%w: degenerate labels (%d wins of %d)", ErrTrainingSkipped, wins, len(records))
	}

	mean, std := predict.FitScaler(x, models.FeatureCount)
	scaled := make([][]float64, len(x))
	for i, row := range x {
		scaled[i] = predict.ApplyScaler(row, mean, std)
	}

	m := predict.NewLogit(models.FeatureCount)
	m.Fit(scaled, y, t.cfg.Fit)

	return &models.ModelState{
		Weights:      m.W,
		Bias:         m.B,
		ScalerMean:   mean,
		ScalerStd:    std,
		TrainedCount: len(records),
		TrainedAt:    time.Now().UTC(),
	}, nil
}
