package training

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/XX-Official/asm2vec/asm"
	"github.com/XX-Official/asm2vec/model"
	"github.com/XX-Official/asm2vec/params"
	"github.com/XX-Official/asm2vec/utils"
)

// Train runs one full pass over every sequence of every function in the
// repository, updating token and function vectors in place. The mutated
// repository is the result; Train itself returns only an error.
func Train(repo *model.FunctionRepository, p params.Params) error {
	ctx, err := NewContext(repo, p, false)
	if err != nil {
		return err
	}
	ctx.AddCounter(TokensHandledCounter, 0)

	for _, f := range repo.Funcs() {
		for _, seq := range f.Sequences {
			if err := trainSequence(f, seq, ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Estimate embeds a single new function against an already-trained
// repository. Token vectors are frozen; only f's vector moves. Every
// token f uses must already exist in the repository's vocabulary.
// Returns f's final vector.
func Estimate(f *model.Function, repo *model.FunctionRepository, p params.Params) ([]float64, error) {
	ctx, err := NewContext(repo, p, true)
	if err != nil {
		return nil, err
	}
	ctx.AddCounter(TokensHandledCounter, 0)

	if f.V == nil {
		rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
		f.V = utils.RandomArray(p.D, float64(p.D), rng)
	}
	for _, seq := range f.Sequences {
		if err := trainSequence(f, seq, ctx); err != nil {
			return nil, err
		}
	}
	return f.V, nil
}

func trainSequence(f *model.Function, seq []asm.Instruction, ctx *Context) error {
	wnd := ctx.NewSequenceWindow(seq)
	for {
		ok, err := wnd.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := trainWindow(wnd, f, ctx); err != nil {
			return err
		}
	}
}

// trainWindow performs one gradient step at the window's position. The
// context delta is the average of the previous instruction
// representation, the function vector, and the next instruction
// representation; each token of the current instruction is then scored
// against the delta alongside its negative samples, and the accumulated
// error is pushed back into the function vector and (outside estimation
// mode) the neighboring instructions' token vectors.
func trainWindow(wnd *SequenceWindow, f *model.Function, ctx *Context) error {
	d := ctx.params.D
	dTok := ctx.params.TokenDim()

	prev := instructionRepr(wnd.PrevOp(), wnd.PrevArgs(), dTok)
	next := instructionRepr(wnd.NextOp(), wnd.NextArgs(), dTok)
	delta := make([]float64, d)
	for j := range delta {
		delta[j] = (prev[j] + f.V[j] + next[j]) / 3
	}

	counter, err := ctx.GetCounter(TokensHandledCounter)
	if err != nil {
		return err
	}

	tokens := make([]*model.Token, 0, 1+len(wnd.CurrArgs()))
	tokens = append(tokens, wnd.CurrOp())
	tokens = append(tokens, wnd.CurrArgs()...)

	grad := make([]float64, d)
	for _, tk := range tokens {
		targets := targetSet(ctx.sampler.Sample(ctx.params.NegSamples), tk)

		n := counter.Value()
		counter.Inc()
		if n%ctx.params.AlphaUpdateInterval == 0 {
			ctx.updateAlpha(n)
		}

		for _, t := range targets {
			label := 0.0
			if t.Name == tk.Name {
				label = 1
			}
			e := label - utils.DotSigmoid(t.VPred, delta)

			// Gradient w.r.t. the context, accumulated across the
			// whole instruction before it is applied.
			floats.AddScaled(grad, e, t.VPred)

			if !ctx.estimating {
				floats.AddScaled(t.VPred, -ctx.alpha*e, delta)
			}
		}
	}

	floats.AddScaled(f.V, -ctx.alpha, grad)

	if !ctx.estimating {
		applyNeighborGrad(wnd.PrevOp(), wnd.PrevArgs(), grad, dTok, ctx.alpha)
		applyNeighborGrad(wnd.NextOp(), wnd.NextArgs(), grad, dTok, ctx.alpha)
	}
	return nil
}

// targetSet deduplicates the drawn samples by name, preserving draw
// order, and guarantees the true target is present.
func targetSet(samples []*model.Token, tk *model.Token) []*model.Token {
	targets := make([]*model.Token, 0, len(samples)+1)
	seen := make(map[string]bool, len(samples)+1)
	for _, t := range samples {
		if !seen[t.Name] {
			seen[t.Name] = true
			targets = append(targets, t)
		}
	}
	if !seen[tk.Name] {
		targets = append(targets, tk)
	}
	return targets
}

// instructionRepr concatenates the opcode vector with the elementwise
// mean of the operand vectors. An instruction with no operands keeps a
// zero operand half.
func instructionRepr(op *model.Token, args []*model.Token, dTok int) []float64 {
	r := make([]float64, 2*dTok)
	copy(r, op.V)
	if len(args) > 0 {
		mean := r[dTok:]
		for _, t := range args {
			floats.Add(mean, t.V)
		}
		floats.Scale(1/float64(len(args)), mean)
	}
	return r
}

// applyNeighborGrad propagates the accumulated context gradient into a
// neighboring instruction: the opcode half goes to the opcode vector,
// the operand half is split evenly among the operand vectors.
func applyNeighborGrad(op *model.Token, args []*model.Token, grad []float64, dTok int, alpha float64) {
	floats.AddScaled(op.V, -alpha, grad[:dTok])
	if len(args) == 0 {
		return
	}
	scale := alpha / float64(len(args))
	for _, t := range args {
		floats.AddScaled(t.V, -scale, grad[dTok:])
	}
}
