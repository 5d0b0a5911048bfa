package utils

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Vector helpers shared by the model and the trainer.

// Inputs beyond this magnitude saturate the sigmoid well past float64
// precision, so we clamp instead of feeding math.Exp huge exponents.
const sigmoidCutoff = 36.0

// Sigmoid computes 1/(1+e^-x) with the input clamped so extreme dot
// products saturate to 0 or 1 instead of overflowing.
func Sigmoid(x float64) float64 {
	if x > sigmoidCutoff {
		return 1
	}
	if x < -sigmoidCutoff {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

// DotSigmoid is the sigmoid of the dot product of two equal-length vectors.
func DotSigmoid(a, b []float64) float64 {
	return Sigmoid(floats.Dot(a, b))
}

// MatrixNorm is the Frobenius norm, used for progress logging.
func MatrixNorm(m *mat.Dense) float64 {
	if m == nil {
		return 0
	}
	return mat.Norm(m, 2)
}

// RandomArray fills a slice with uniform values in ±1/sqrt(v), the usual
// small init scaled by fan-in.
func RandomArray(size int, v float64, rng *rand.Rand) []float64 {
	min := -1.0 / math.Sqrt(v+1e-12)
	max := 1.0 / math.Sqrt(v+1e-12)
	out := make([]float64, size)
	for i := 0; i < size; i++ {
		out[i] = min + (max-min)*rng.Float64()
	}
	return out
}
