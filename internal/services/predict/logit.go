package predict

import (
	"math"
	"math/rand"
)

// Logit is a plain logistic-regression binary classifier trained in-process.
// Weights operate on z-scored features.
type Logit struct {
	W []float64
	B float64
}

func NewLogit(dim int) *Logit {
	return &Logit{W: make([]float64, dim)}
}

func sigmoid(z float64) float64 {
	// clamp to keep exp well-behaved on extreme logits
	if z > 20 {
		z = 20
	} else if z < -20 {
		z = -20
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

// Predict returns P(label=1) for one scaled row. An arity mismatch yields
// the uninformative 0.5 rather than a panic.
func (m *Logit) Predict(x []float64) float64 {
	if len(x) != len(m.W) {
		return 0.5
	}
	z := m.B
	for i, w := range m.W {
		z += w * x[i]
	}
	return sigmoid(z)
}

// FitOptions tune minibatch gradient descent.
type FitOptions struct {
	LearningRate float64
	Epochs       int
	BatchSize    int
	L2           float64
	Patience     int // epochs without loss improvement before stopping
	Seed         int64
}

func DefaultFitOptions() FitOptions {
	return FitOptions{
		LearningRate: 0.05,
		Epochs:       200,
		BatchSize:    16,
		L2:           1e-4,
		Patience:     20,
		Seed:         1,
	}
}

// Fit trains on scaled rows x with labels y in {0,1} using minibatch SGD
// with L2 regularization and early stopping on the training log loss.
func (m *Logit) Fit(x [][]float64, y []float64, opt FitOptions) {
	n := len(x)
	if n == 0 || len(y) != n {
		return
	}
	if opt.BatchSize <= 0 || opt.BatchSize > n {
		opt.BatchSize = n
	}
	rng := rand.New(rand.NewSource(opt.Seed))
	best := math.Inf(1)
	stale := 0

	for epoch := 0; epoch < opt.Epochs; epoch++ {
		perm := rng.Perm(n)
		for start := 0; start < n; start += opt.BatchSize {
			end := start + opt.BatchSize
			if end > n {
				end = n
			}
			gw := make([]float64, len(m.W))
			gb := 0.0
			for _, idx := range perm[start:end] {
				p := m.Predict(x[idx])
				err := p - y[idx]
				for j := range m.W {
					gw[j] += err * x[idx][j]
				}
				gb += err
			}
			batch := float64(end - start)
			for j := range m.W {
				m.W[j] -= opt.LearningRate * (gw[j]/batch + opt.L2*m.W[j])
			}
			m.B -= opt.LearningRate * gb / batch
		}

		loss := m.logLoss(x, y)
		if loss < best-1e-6 {
			best = loss
			stale = 0
		} else {
			stale++
			if opt.Patience > 0 && stale >= opt.Patience {
				return
			}
		}
	}
}

func (m *Logit) logLoss(x [][]float64, y []float64) float64 {
	const eps = 1e-12
	total := 0.0
	for i := range x {
		p := m.Predict(x[i])
		if p < eps {
			p = eps
		} else if p > 1-eps {
			p = 1 - eps
		}
		total += -(y[i]*math.Log(p) + (1-y[i])*math.Log(1-p))
	}
	return total / float64(len(x))
}
