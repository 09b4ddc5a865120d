package models

// Requests for the status HTTP endpoints. Defined in domain for consistency
// and reuse.

type TradesRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	N      int    `query:"n" json:"n" default:"50" validate:"gte=1,lte=1000"`
}

// ModelStatus is the read-only view of the active classifier.
type ModelStatus struct {
	Trained      bool   `json:"trained"`
	Version      int    `json:"version,omitempty"`
	TrainedCount int    `json:"trained_count,omitempty"`
	TrainedAt    string `json:"trained_at,omitempty"`
}
