package predict

import (
	"math"
	"testing"
)

func TestLogitArityMismatchReturnsHalf(t *testing.T) {
	m := NewLogit(7)
	if p := m.Predict([]float64{1, 2}); p != 0.5 {
		t.Fatalf("predict on mismatched arity = %v, want 0.5", p)
	}
}

func TestLogitPredictBounds(t *testing.T) {
	m := &Logit{W: []float64{100}, B: 50}
	if p := m.Predict([]float64{100}); p <= 0 || p >= 1 {
		t.Fatalf("extreme logit produced %v, want open (0,1)", p)
	}
	if p := m.Predict([]float64{-100}); p <= 0 || p >= 1 {
		t.Fatalf("extreme negative logit produced %v", p)
	}
}

func TestLogitFitSeparatesClasses(t *testing.T) {
	// one informative dimension: positive values labeled 1, negative 0
	var x [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		v := 1.0 + 0.05*float64(i%7)
		x = append(x, []float64{v})
		y = append(y, 1)
		x = append(x, []float64{-v})
		y = append(y, 0)
	}
	m := NewLogit(1)
	m.Fit(x, y, DefaultFitOptions())

	if p := m.Predict([]float64{1.2}); p < 0.7 {
		t.Errorf("positive sample scored %v, want >= 0.7", p)
	}
	if p := m.Predict([]float64{-1.2}); p > 0.3 {
		t.Errorf("negative sample scored %v, want <= 0.3", p)
	}
}

func TestScalerZeroVarianceColumn(t *testing.T) {
	samples := [][]float64{{5, 1}, {5, 3}, {5, 5}}
	mean, std := FitScaler(samples, 2)
	if mean[0] != 5 {
		t.Errorf("mean[0] = %v, want 5", mean[0])
	}
	if std[0] != 1 {
		t.Errorf("constant column std = %v, want fallback 1", std[0])
	}
	scaled := ApplyScaler([]float64{5, 3}, mean, std)
	if scaled[0] != 0 {
		t.Errorf("constant column should scale to 0, got %v", scaled[0])
	}
	if math.Abs(scaled[1]) > 1e-9 {
		t.Errorf("mean value should scale to ~0, got %v", scaled[1])
	}
}
