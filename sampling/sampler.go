// Package sampling draws negative-sample tokens proportionally to corpus
// frequency.
package sampling

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/XX-Official/asm2vec/model"
)

// NegativeSampler draws tokens at random, with replacement, with
// probability proportional to a fixed weight per token. Zero-weight
// tokens are never drawn. The distribution is fixed at construction;
// sampling has no side effects on token state.
type NegativeSampler struct {
	tokens []*model.Token
	dist   distuv.Categorical
}

// New builds a sampler over tokens[i] weighted by weights[i]. It fails
// if the total weight is zero or any weight is negative.
func New(tokens []*model.Token, weights []float64, seed uint64) (*NegativeSampler, error) {
	if len(tokens) != len(weights) {
		return nil, fmt.Errorf("sampling: %d tokens but %d weights", len(tokens), len(weights))
	}
	total := 0.0
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("sampling: negative weight %g for token %q", w, tokens[i].Name)
		}
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("sampling: total weight is zero; the vocabulary has no token frequencies")
	}
	src := rand.NewPCG(seed, seed)
	return &NegativeSampler{
		tokens: tokens,
		dist:   distuv.NewCategorical(weights, src),
	}, nil
}

// FromVocabulary builds a sampler over the whole vocabulary, weighted by
// token frequency. Tokens are ordered by name so the same seed yields
// the same draw sequence regardless of map iteration order.
func FromVocabulary(vocab model.Vocabulary, seed uint64) (*NegativeSampler, error) {
	names := make([]string, 0, len(vocab))
	for name := range vocab {
		names = append(names, name)
	}
	sort.Strings(names)

	tokens := make([]*model.Token, len(names))
	weights := make([]float64, len(names))
	for i, name := range names {
		tokens[i] = vocab[name]
		weights[i] = float64(tokens[i].Frequency)
	}
	return New(tokens, weights, seed)
}

// Sample draws exactly k tokens, independently, with replacement.
func (s *NegativeSampler) Sample(k int) []*model.Token {
	out := make([]*model.Token, k)
	for i := 0; i < k; i++ {
		out[i] = s.tokens[int(s.dist.Rand())]
	}
	return out
}
