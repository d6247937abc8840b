package usecase

import "math"

// Regression error metrics shared by the trainer, cross-validator and
// accuracy tracker. All percentage metrics are on a 0-100 scale.

func meanAbsoluteError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

func rootMeanSquaredError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var ss float64
	for i := range actual {
		d := actual[i] - predicted[i]
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(actual)))
}

// symmetricPercentError guards the denominator with the average of the
// absolute values, so near-zero actuals do not explode the metric.
func symmetricPercentError(actual, predicted float64) float64 {
	denom := (math.Abs(actual) + math.Abs(predicted)) / 2
	if denom < 1e-9 {
		return 0
	}
	return math.Abs(actual-predicted) / denom * 100
}

func symmetricMAPE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += symmetricPercentError(actual[i], predicted[i])
	}
	return sum / float64(len(actual))
}

func meanAbsolutePercentError(actual, predicted []float64) float64 {
	var sum float64
	var n int
	for i := range actual {
		if math.Abs(actual[i]) < 1e-9 {
			continue
		}
		sum += math.Abs(actual[i]-predicted[i]) / math.Abs(actual[i]) * 100
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func rSquared(actual, predicted []float64) float64 {
	if len(actual) < 2 {
		return 0
	}
	var mean float64
	for _, a := range actual {
		mean += a
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		r := actual[i] - predicted[i]
		ssRes += r * r
		t := actual[i] - mean
		ssTot += t * t
	}
	if ssTot < 1e-12 {
		return 0
	}
	return 1 - ssRes/ssTot
}
