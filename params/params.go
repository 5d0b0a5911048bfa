package params

import "fmt"

// Params holds every hyperparameter the model recognizes. Zero values are
// not meaningful; start from Default() and override fields as needed.
type Params struct {
	D                   int     // embedding width of function vectors (must be even)
	Alpha               float64 // initial learning rate
	AlphaUpdateInterval int     // recompute the rate every this many tokens
	RndWalks            int     // random walks per function (used by sequence generation)
	NegSamples          int     // negative samples drawn per token
	Iteration           int     // iteration count in the learning-rate schedule

	// Seed drives every random source (vector init, negative sampling).
	// Two runs with the same seed and corpus produce identical vectors.
	Seed uint64
}

// Default returns the standard hyperparameter set.
func Default() Params {
	return Params{
		D:                   200,
		Alpha:               0.05,
		AlphaUpdateInterval: 10_000,
		RndWalks:            3,
		NegSamples:          25,
		Iteration:           1,
		Seed:                1,
	}
}

// TokenDim is the width of token input vectors. An instruction is
// represented as its opcode vector concatenated with the mean of its
// operand vectors, so each token vector covers half of D.
func (p Params) TokenDim() int {
	return p.D / 2
}

func (p Params) Validate() error {
	if p.D <= 0 || p.D%2 != 0 {
		return fmt.Errorf("params: D must be positive and even, got %d", p.D)
	}
	if p.Alpha <= 0 {
		return fmt.Errorf("params: Alpha must be positive, got %g", p.Alpha)
	}
	if p.AlphaUpdateInterval <= 0 {
		return fmt.Errorf("params: AlphaUpdateInterval must be positive, got %d", p.AlphaUpdateInterval)
	}
	if p.NegSamples < 0 {
		return fmt.Errorf("params: NegSamples must not be negative, got %d", p.NegSamples)
	}
	if p.Iteration < 1 {
		return fmt.Errorf("params: Iteration must be at least 1, got %d", p.Iteration)
	}
	return nil
}
