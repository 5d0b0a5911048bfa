// Package model holds the trainable state: vocabulary tokens, functions,
// and the repository tying them together.
package model

// Token is one vocabulary entry, an opcode or operand name with its
// corpus frequency and trainable vectors. Tokens are identified by name
// and shared by reference — every instruction occurrence of a name
// resolves to the same *Token, so in-place vector updates are visible
// everywhere at once.
type Token struct {
	Name      string
	Frequency int

	// V is the input embedding, TokenDim (D/2) wide: instruction
	// representations concatenate an opcode V with the mean of the
	// operand Vs.
	V []float64

	// VPred is the predictive (output) embedding, D wide, scored
	// against the context delta during negative sampling.
	VPred []float64
}

// Vocabulary maps token name to its record.
type Vocabulary map[string]*Token
