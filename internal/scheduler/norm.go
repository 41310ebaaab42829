package scheduler

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// scaledMaxError returns max_i |a_i - b_i| / (absTol + relTol*|a_i|). NaN
// differences count as infinitely large. It is 0 for empty input.
func scaledMaxError(a, b []float64, absTol, relTol float64) float64 {
	if len(a) == 0 {
		return 0
	}
	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	for i, d := range diff {
		d = math.Abs(d) / (absTol + relTol*math.Abs(a[i]))
		if math.IsNaN(d) {
			d = math.Inf(1)
		}
		diff[i] = d
	}
	return floats.Max(diff)
}
