package training

import (
	"math"
	"testing"

	"github.com/XX-Official/asm2vec/asm"
	"github.com/XX-Official/asm2vec/model"
	"github.com/XX-Official/asm2vec/params"
)

func trainParams() params.Params {
	p := params.Default()
	p.D = 4
	p.NegSamples = 3
	p.Seed = 17
	return p
}

func corpusFuncs() []*model.Function {
	seqA := []asm.Instruction{
		asm.NewInstruction("push", "rbp"),
		asm.NewInstruction("mov", "eax", "ebx"),
		asm.NewInstruction("add", "eax", "1"),
		asm.NewInstruction("ret"),
	}
	seqB := []asm.Instruction{
		asm.NewInstruction("mov", "ebx", "1"),
		asm.NewInstruction("sub", "eax", "ebx"),
		asm.NewInstruction("ret"),
	}
	return []*model.Function{
		model.NewFunction("f1", [][]asm.Instruction{seqA}),
		model.NewFunction("f2", [][]asm.Instruction{seqB}),
	}
}

func buildRepo(t *testing.T, p params.Params) *model.FunctionRepository {
	t.Helper()
	repo, err := model.BuildRepository(corpusFuncs(), p)
	if err != nil {
		t.Fatal(err)
	}
	return repo
}

func snapshotVocab(vocab model.Vocabulary) map[string][][]float64 {
	snap := make(map[string][][]float64, len(vocab))
	for name, tk := range vocab {
		v := append([]float64(nil), tk.V...)
		vp := append([]float64(nil), tk.VPred...)
		snap[name] = [][]float64{v, vp}
	}
	return snap
}

func vocabEquals(vocab model.Vocabulary, snap map[string][][]float64) bool {
	for name, tk := range vocab {
		for j, x := range tk.V {
			if snap[name][0][j] != x {
				return false
			}
		}
		for j, x := range tk.VPred {
			if snap[name][1][j] != x {
				return false
			}
		}
	}
	return true
}

func TestTrainMutatesVectors(t *testing.T) {
	p := trainParams()
	repo := buildRepo(t, p)
	before := snapshotVocab(repo.Vocab())
	fBefore := append([]float64(nil), repo.Funcs()[0].V...)

	if err := Train(repo, p); err != nil {
		t.Fatal(err)
	}

	if vocabEquals(repo.Vocab(), before) {
		t.Fatal("training left every token vector untouched")
	}
	changed := false
	for j, x := range repo.Funcs()[0].V {
		if x != fBefore[j] {
			changed = true
			break
		}
	}
	if !changed {
		t.Fatal("training left the function vector untouched")
	}
}

func TestTrainShortSequencesAreNoOps(t *testing.T) {
	p := trainParams()
	short := []*model.Function{
		model.NewFunction("tiny", [][]asm.Instruction{
			{asm.NewInstruction("ret")},
			{asm.NewInstruction("push", "rbp"), asm.NewInstruction("ret")},
		}),
	}
	repo, err := model.BuildRepository(short, p)
	if err != nil {
		t.Fatal(err)
	}
	before := snapshotVocab(repo.Vocab())
	fBefore := append([]float64(nil), repo.Funcs()[0].V...)

	if err := Train(repo, p); err != nil {
		t.Fatal(err)
	}

	if !vocabEquals(repo.Vocab(), before) {
		t.Fatal("sequences shorter than 3 instructions must produce no updates")
	}
	for j, x := range repo.Funcs()[0].V {
		if x != fBefore[j] {
			t.Fatal("function vector moved without any windows")
		}
	}
}

func TestTrainDeterministicGivenSeed(t *testing.T) {
	p := trainParams()
	a := buildRepo(t, p)
	b := buildRepo(t, p)

	if err := Train(a, p); err != nil {
		t.Fatal(err)
	}
	if err := Train(b, p); err != nil {
		t.Fatal(err)
	}

	for name, tk := range a.Vocab() {
		other := b.Vocab()[name]
		for j := range tk.V {
			if tk.V[j] != other.V[j] {
				t.Fatalf("token %q V differs across identically seeded runs", name)
			}
		}
		for j := range tk.VPred {
			if tk.VPred[j] != other.VPred[j] {
				t.Fatalf("token %q VPred differs across identically seeded runs", name)
			}
		}
	}
	for i := range a.Funcs() {
		for j := range a.Funcs()[i].V {
			if a.Funcs()[i].V[j] != b.Funcs()[i].V[j] {
				t.Fatalf("function %q differs across identically seeded runs", a.Funcs()[i].Name)
			}
		}
	}
}

func TestEstimateFreezesVocabulary(t *testing.T) {
	p := trainParams()
	repo := buildRepo(t, p)
	if err := Train(repo, p); err != nil {
		t.Fatal(err)
	}
	trained := snapshotVocab(repo.Vocab())

	newFunc := model.NewFunction("fresh", [][]asm.Instruction{{
		asm.NewInstruction("mov", "eax", "1"),
		asm.NewInstruction("add", "eax", "ebx"),
		asm.NewInstruction("ret"),
	}})
	newFunc.V = make([]float64, p.D)
	for j := range newFunc.V {
		newFunc.V[j] = 0.01
	}

	v, err := Estimate(newFunc, repo, p)
	if err != nil {
		t.Fatal(err)
	}

	if !vocabEquals(repo.Vocab(), trained) {
		t.Fatal("estimation mutated the vocabulary")
	}
	moved := false
	for _, x := range v {
		if x != 0.01 {
			moved = true
			break
		}
	}
	if !moved {
		t.Fatal("estimation never moved the function vector")
	}
	if len(v) != p.D {
		t.Fatalf("estimated vector has width %d, want %d", len(v), p.D)
	}
	if &v[0] != &newFunc.V[0] {
		t.Fatal("Estimate must return the function's own vector")
	}
}

func TestEstimateUnknownTokenFails(t *testing.T) {
	p := trainParams()
	repo := buildRepo(t, p)

	alien := model.NewFunction("alien", [][]asm.Instruction{{
		asm.NewInstruction("mov", "eax", "1"),
		asm.NewInstruction("xor", "r15", "r15"),
		asm.NewInstruction("ret"),
	}})
	if _, err := Estimate(alien, repo, p); err == nil {
		t.Fatal("expected an error for tokens outside the trained vocabulary")
	}
}

// fixedSampler always returns the same draw, letting the gradient test
// pin its targets.
type fixedSampler struct {
	draw []*model.Token
}

func (s fixedSampler) Sample(k int) []*model.Token {
	return s.draw
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func TestGradientStepHandComputed(t *testing.T) {
	p := params.Default()
	p.D = 2
	p.NegSamples = 1
	p.Iteration = 1

	a := &model.Token{Name: "a", Frequency: 3, V: []float64{0.1}, VPred: []float64{0.2, -0.1}}
	b := &model.Token{Name: "b", Frequency: 3, V: []float64{-0.3}, VPred: []float64{0.4, 0.3}}
	vocab := model.Vocabulary{"a": a, "b": b}
	repo := model.NewFunctionRepository(vocab, nil, 6)

	f := &model.Function{Name: "f", V: []float64{0.5, -0.5}}
	seq := []asm.Instruction{
		asm.NewInstruction("a"),
		asm.NewInstruction("a"),
		asm.NewInstruction("a"),
	}

	ctx := &Context{
		repo:     repo,
		params:   p,
		alpha:    p.Alpha,
		sampler:  fixedSampler{draw: []*model.Token{b}},
		counters: make(map[string]*Counter),
	}
	ctx.AddCounter(TokensHandledCounter, 0)

	if err := trainSequence(f, seq, ctx); err != nil {
		t.Fatal(err)
	}

	// One window over seq[1], one processed token ("a"), targets in
	// draw order: b (negative), then a (the true target). The first
	// token triggers the rate recomputation at counter value 0, so
	// every update below uses alpha = 1 - 0/(1*6+1) = 1.
	const alpha = 1.0
	delta0, delta1 := (0.1+0.5+0.1)/3, (0.0-0.5+0.0)/3

	eB := 0 - sigmoid(0.4*delta0+0.3*delta1)
	eA := 1 - sigmoid(0.2*delta0+(-0.1)*delta1)

	grad0 := eB*0.4 + eA*0.2
	grad1 := eB*0.3 + eA*(-0.1)

	wantBPred := []float64{0.4 - alpha*eB*delta0, 0.3 - alpha*eB*delta1}
	wantAPred := []float64{0.2 - alpha*eA*delta0, -0.1 - alpha*eA*delta1}
	wantF := []float64{0.5 - alpha*grad0, -0.5 - alpha*grad1}
	// Both neighbors are "a" with no operands: the opcode half of the
	// gradient lands on a.V twice.
	wantAV := 0.1 - 2*alpha*grad0

	const tol = 1e-9
	checkVec(t, "b.VPred", b.VPred, wantBPred, tol)
	checkVec(t, "a.VPred", a.VPred, wantAPred, tol)
	checkVec(t, "f.V", f.V, wantF, tol)
	if math.Abs(a.V[0]-wantAV) > tol {
		t.Fatalf("a.V[0] = %.12g, want %.12g", a.V[0], wantAV)
	}
	if math.Abs(b.V[0]-(-0.3)) > tol {
		t.Fatalf("b.V[0] = %.12g, want it untouched", b.V[0])
	}
}

func checkVec(t *testing.T, name string, got, want []float64, tol float64) {
	t.Helper()
	for j := range want {
		if math.Abs(got[j]-want[j]) > tol {
			t.Fatalf("%s[%d] = %.12g, want %.12g", name, j, got[j], want[j])
		}
	}
}

func TestSmallCorpusSingleAlphaRecompute(t *testing.T) {
	p := trainParams()
	funcs := []*model.Function{
		model.NewFunction("one", [][]asm.Instruction{{
			asm.NewInstruction("push", "rbp"),
			asm.NewInstruction("mov", "eax", "ebx"),
			asm.NewInstruction("ret"),
		}}),
	}
	repo, err := model.BuildRepository(funcs, p)
	if err != nil {
		t.Fatal(err)
	}

	ctx, err := NewContext(repo, p, false)
	if err != nil {
		t.Fatal(err)
	}
	counter := ctx.AddCounter(TokensHandledCounter, 0)

	for _, seq := range funcs[0].Sequences {
		if err := trainSequence(funcs[0], seq, ctx); err != nil {
			t.Fatal(err)
		}
	}

	// One window, whose current instruction carries 3 tokens.
	if counter.Value() != 3 {
		t.Fatalf("tokens handled = %d, want 3", counter.Value())
	}
	// Only the recomputation at counter value 0 fires; with 6 corpus
	// tokens that sets alpha to 1 - 0/(1*6+1) = 1 and nothing moves it
	// again before the interval elapses.
	if ctx.Alpha() != 1.0 {
		t.Fatalf("alpha = %.6g after the first recomputation, want 1", ctx.Alpha())
	}
}
