package model

import (
	"math/rand/v2"

	"github.com/XX-Official/asm2vec/params"
	"github.com/XX-Official/asm2vec/utils"
)

// FunctionRepository aggregates the vocabulary, the corpus functions, and
// the total token count. The trainer only mutates vectors in place; it
// never adds or removes tokens or functions.
type FunctionRepository struct {
	vocab     Vocabulary
	funcs     []*Function
	numTokens int
}

// NewFunctionRepository wraps already-built state. numTokens must be the
// total opcode+operand occurrence count across the corpus; the trainer
// uses it for the learning-rate schedule and never recomputes it.
func NewFunctionRepository(vocab Vocabulary, funcs []*Function, numTokens int) *FunctionRepository {
	return &FunctionRepository{vocab: vocab, funcs: funcs, numTokens: numTokens}
}

func (r *FunctionRepository) Vocab() Vocabulary {
	return r.vocab
}

func (r *FunctionRepository) Funcs() []*Function {
	return r.funcs
}

func (r *FunctionRepository) NumTokens() int {
	return r.numTokens
}

// BuildRepository scans every sequence of every function, creates a
// vocabulary token (with small random V, zero VPred) for each distinct
// opcode and operand name, counts frequencies and total tokens, and
// initializes each function vector. All randomness comes from p.Seed.
func BuildRepository(funcs []*Function, p params.Params) (*FunctionRepository, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))

	vocab := make(Vocabulary)
	total := 0
	for _, f := range funcs {
		if f.V == nil {
			f.V = utils.RandomArray(p.D, float64(p.D), rng)
		}
		for _, seq := range f.Sequences {
			for _, ins := range seq {
				addToken(vocab, ins.Op(), p, rng)
				for _, a := range ins.Args() {
					addToken(vocab, a, p, rng)
				}
				total += 1 + len(ins.Args())
			}
		}
	}
	return NewFunctionRepository(vocab, funcs, total), nil
}

func addToken(vocab Vocabulary, name string, p params.Params, rng *rand.Rand) {
	tk, ok := vocab[name]
	if !ok {
		tk = &Token{
			Name:  name,
			V:     utils.RandomArray(p.TokenDim(), float64(p.D), rng),
			VPred: make([]float64, p.D),
		}
		vocab[name] = tk
	}
	tk.Frequency++
}
