package models

// FeatureCount is the fixed arity of every FeatureVector. The trained model
// and the extractor must agree on it; a mismatch falls back to the heuristic.
const FeatureCount = 7

// Feature indices, stable across training and prediction.
const (
	FeatPrice = iota
	FeatVolume
	FeatHourOfDay
	FeatDayOfWeek
	FeatRoundTripFee
	FeatVolatility
	FeatProfitAfterFees
)

// FeatureVector is an ordered, fixed-size numeric view of one instrument at
// one instant.
type FeatureVector [FeatureCount]float64

// Slice returns the vector as a fresh []float64 for model consumption.
func (f FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, f[:])
	return out
}
