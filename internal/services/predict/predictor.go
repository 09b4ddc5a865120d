// Package predict scores candidate entries. A trained model state drives the
// score when one is available and mature enough; otherwise a bounded
// heuristic over costs and volatility serves, so the engine can always
// decide.
package predict

import (
	"MicroTrade/internal/domain/models"
	"MicroTrade/pkg/logger"
)

// Config gates when the trained path may serve.
type Config struct {
	Enabled           bool
	MinTrainingTrades int // trained states below this fall back
}

func DefaultConfig() Config {
	return Config{Enabled: true, MinTrainingTrades: 20}
}

type Engine struct {
	cfg Config
	l   *logger.Logger
}

func NewEngine(cfg Config, l *logger.Logger) *Engine {
	return &Engine{cfg: cfg, l: l}
}

// Predict scores one candidate entry. It never errors and never blocks; the
// passed state is read-only so concurrent retraining cannot disturb it.
func (e *Engine) Predict(features models.FeatureVector, state *models.ModelState) models.Prediction {
	if !e.usable(state) {
		return models.Prediction{Probability: e.heuristic(features), Fallback: true}
	}

	scaled := ApplyScaler(features.Slice(), state.ScalerMean, state.ScalerStd)
	m := Logit{W: state.Weights, B: state.Bias}
	p := m.Predict(scaled)
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return models.Prediction{Probability: p}
}

func (e *Engine) usable(state *models.ModelState) bool {
	if !e.cfg.Enabled || state == nil {
		return false
	}
	if state.TrainedCount < e.cfg.MinTrainingTrades {
		return false
	}
	if len(state.Weights) != models.FeatureCount {
		e.l.Warn("model arity mismatch, serving fallback",
			logger.Int("weights", len(state.Weights)),
			logger.Int("version", state.Version))
		return false
	}
	return true
}

// heuristic scores from expected profit after fees penalized by volatility.
// Output stays inside [0.05, 0.95] so it can both pass and fail the
// confidence gate but never claims certainty.
func (e *Engine) heuristic(f models.FeatureVector) float64 {
	profit := f[models.FeatProfitAfterFees]
	fee := f[models.FeatRoundTripFee]
	vol := f[models.FeatVolatility]

	score := 0.5
	score += 25 * profit // 1% net edge moves the score by 0.25
	score -= 10 * fee
	score -= 2 * vol

	if score < 0.05 {
		score = 0.05
	} else if score > 0.95 {
		score = 0.95
	}
	return score
}
