package models

import "time"

// ModelState is one immutable trained classifier snapshot. The learning loop
// publishes a new state atomically; readers never observe a partial one.
type ModelState struct {
	Version      int       `json:"version"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	ScalerMean   []float64 `json:"scaler_mean"`
	ScalerStd    []float64 `json:"scaler_std"`
	TrainedCount int       `json:"trained_count"` // ledger size at training time
	TrainedAt    time.Time `json:"trained_at"`
}

// Prediction is the classifier's view of one candidate entry.
type Prediction struct {
	Probability float64 // P(profitable round trip), in [0,1]
	Fallback    bool    // true when the heuristic served instead of the model
}
