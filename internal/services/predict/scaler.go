package predict

import "math"

// minStd guards z-scoring against constant feature columns.
const minStd = 1e-9

// FitScaler computes per-column mean and standard deviation over the
// training matrix. Columns with no variance get std 1 so they z-score to 0.
func FitScaler(samples [][]float64, cols int) (mean, std []float64) {
	mean = make([]float64, cols)
	std = make([]float64, cols)
	n := float64(len(samples))
	if n == 0 {
		for j := range std {
			std[j] = 1
		}
		return mean, std
	}
	for _, row := range samples {
		for j := 0; j < cols && j < len(row); j++ {
			mean[j] += row[j]
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range samples {
		for j := 0; j < cols && j < len(row); j++ {
			d := row[j] - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] < minStd {
			std[j] = 1
		}
	}
	return mean, std
}

// ApplyScaler z-scores one row in place-safe fashion, returning a new slice.
func ApplyScaler(row, mean, std []float64) []float64 {
	out := make([]float64, len(row))
	for j := range row {
		if j < len(mean) && j < len(std) {
			out[j] = (row[j] - mean[j]) / std[j]
		} else {
			out[j] = row[j]
		}
	}
	return out
}
