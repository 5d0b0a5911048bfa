package training

import (
	"fmt"

	"github.com/XX-Official/asm2vec/asm"
	"github.com/XX-Official/asm2vec/model"
	"github.com/XX-Official/asm2vec/params"
	"github.com/XX-Official/asm2vec/sampling"
)

// TokensHandledCounter names the counter driving the learning-rate
// schedule. The gradient step increments it once per token it processes.
const TokensHandledCounter = "tokens_handled"

// Sampler is the negative-sample source the gradient step draws from.
type Sampler interface {
	Sample(k int) []*model.Token
}

// Counter is a named monotonic counter owned by a Context. Counters are
// per-context state, never process-wide, so independent training runs
// cannot interfere with each other.
type Counter struct {
	name string
	val  int
}

func (c *Counter) Value() int {
	return c.val
}

// Inc adds one and returns the new value.
func (c *Counter) Inc() int {
	c.val++
	return c.val
}

// Reset zeroes the counter and returns the value it had.
func (c *Counter) Reset() int {
	v := c.val
	c.val = 0
	return v
}

// Context carries everything one training run needs: the repository,
// hyperparameters, the current learning rate, the negative sampler, and
// the named counters. A context in estimation mode freezes all token
// vectors and only updates the function vector being estimated.
type Context struct {
	repo       *model.FunctionRepository
	params     params.Params
	alpha      float64
	sampler    Sampler
	estimating bool
	counters   map[string]*Counter
}

// NewContext builds a context against repo. The negative sampler is
// constructed once here, from the full vocabulary frequency
// distribution; an empty or all-zero-frequency vocabulary is a
// configuration error.
func NewContext(repo *model.FunctionRepository, p params.Params, estimating bool) (*Context, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sampler, err := sampling.FromVocabulary(repo.Vocab(), p.Seed)
	if err != nil {
		return nil, err
	}
	return &Context{
		repo:       repo,
		params:     p,
		alpha:      p.Alpha,
		sampler:    sampler,
		estimating: estimating,
		counters:   make(map[string]*Counter),
	}, nil
}

func (c *Context) Repo() *model.FunctionRepository {
	return c.repo
}

func (c *Context) Params() params.Params {
	return c.params
}

// Alpha is the current learning rate.
func (c *Context) Alpha() float64 {
	return c.alpha
}

func (c *Context) IsEstimating() bool {
	return c.estimating
}

// NewSequenceWindow opens a window over seq against the repository's
// vocabulary.
func (c *Context) NewSequenceWindow(seq []asm.Instruction) *SequenceWindow {
	return NewSequenceWindow(seq, c.repo.Vocab())
}

// AddCounter registers a counter under name, replacing any previous one.
func (c *Context) AddCounter(name string, initial int) *Counter {
	ctr := &Counter{name: name, val: initial}
	c.counters[name] = ctr
	return ctr
}

// GetCounter looks up a registered counter; a missing name is an error.
func (c *Context) GetCounter(name string) (*Counter, error) {
	ctr, ok := c.counters[name]
	if !ok {
		return nil, fmt.Errorf("training: no counter named %q", name)
	}
	return ctr, nil
}

// updateAlpha recomputes the learning rate from the number of tokens
// handled so far, decaying linearly with progress through the corpus and
// floored at a ten-thousandth of the initial rate.
func (c *Context) updateAlpha(tokensHandled int) {
	a := 1 - float64(tokensHandled)/float64(c.params.Iteration*c.repo.NumTokens()+1)
	if floor := c.params.Alpha * 1e-4; a < floor {
		a = floor
	}
	c.alpha = a
}
