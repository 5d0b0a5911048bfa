package model

import "github.com/XX-Official/asm2vec/asm"

// Function is one assembly function: its trainable embedding plus the
// linearized instruction sequences produced by random walks over its
// control-flow graph.
type Function struct {
	Name string

	// V is the function embedding, D wide.
	V []float64

	// Sequences are the linearized walks the trainer slides its window
	// over. Not serialized; only the learned vector outlives training.
	Sequences [][]asm.Instruction
}

// NewFunction builds a function record with a nil vector; the vector is
// initialized when the repository is built.
func NewFunction(name string, sequences [][]asm.Instruction) *Function {
	return &Function{Name: name, Sequences: sequences}
}

// NumTokens counts opcode and operand occurrences across all sequences.
func (f *Function) NumTokens() int {
	n := 0
	for _, seq := range f.Sequences {
		for _, ins := range seq {
			n += 1 + len(ins.Args())
		}
	}
	return n
}
