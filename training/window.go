// Package training implements the embedding trainer: a sliding window
// over linearized instruction sequences drives negative-sampling
// gradient updates against the vocabulary and function vectors.
package training

import (
	"fmt"

	"github.com/XX-Official/asm2vec/asm"
	"github.com/XX-Official/asm2vec/model"
)

// SequenceWindow is a single-pass cursor over one instruction sequence.
// At each position it resolves the previous, current, and next
// instructions' opcode and operand names to their live vocabulary
// tokens, so vector updates made through one window are immediately
// visible through every later view of the same token. Re-iterating a
// sequence takes a fresh window.
type SequenceWindow struct {
	seq   []asm.Instruction
	vocab model.Vocabulary
	i     int

	prevIns, currIns, nextIns    asm.Instruction
	prevOp, currOp, nextOp       *model.Token
	prevArgs, currArgs, nextArgs []*model.Token
}

// NewSequenceWindow positions a window at the second instruction.
// Sequences shorter than 3 instructions yield no positions at all.
func NewSequenceWindow(seq []asm.Instruction, vocab model.Vocabulary) *SequenceWindow {
	return &SequenceWindow{seq: seq, vocab: vocab, i: 1}
}

// Next advances the window one position. It returns false when the
// sequence is exhausted, and an error if an instruction names a token
// missing from the vocabulary.
func (w *SequenceWindow) Next() (bool, error) {
	if w.i >= len(w.seq)-1 {
		return false, nil
	}

	w.prevIns = w.seq[w.i-1]
	w.currIns = w.seq[w.i]
	w.nextIns = w.seq[w.i+1]

	var err error
	if w.prevOp, w.prevArgs, err = w.resolve(w.prevIns); err != nil {
		return false, err
	}
	if w.currOp, w.currArgs, err = w.resolve(w.currIns); err != nil {
		return false, err
	}
	if w.nextOp, w.nextArgs, err = w.resolve(w.nextIns); err != nil {
		return false, err
	}

	w.i++
	return true, nil
}

func (w *SequenceWindow) resolve(ins asm.Instruction) (*model.Token, []*model.Token, error) {
	op, err := w.lookup(ins.Op())
	if err != nil {
		return nil, nil, err
	}
	args := make([]*model.Token, len(ins.Args()))
	for i, a := range ins.Args() {
		if args[i], err = w.lookup(a); err != nil {
			return nil, nil, err
		}
	}
	return op, args, nil
}

func (w *SequenceWindow) lookup(name string) (*model.Token, error) {
	tk, ok := w.vocab[name]
	if !ok {
		return nil, fmt.Errorf("training: token %q is not in the vocabulary", name)
	}
	return tk, nil
}

func (w *SequenceWindow) PrevIns() asm.Instruction { return w.prevIns }
func (w *SequenceWindow) CurrIns() asm.Instruction { return w.currIns }
func (w *SequenceWindow) NextIns() asm.Instruction { return w.nextIns }

func (w *SequenceWindow) PrevOp() *model.Token     { return w.prevOp }
func (w *SequenceWindow) PrevArgs() []*model.Token { return w.prevArgs }
func (w *SequenceWindow) CurrOp() *model.Token     { return w.currOp }
func (w *SequenceWindow) CurrArgs() []*model.Token { return w.currArgs }
func (w *SequenceWindow) NextOp() *model.Token     { return w.nextOp }
func (w *SequenceWindow) NextArgs() []*model.Token { return w.nextArgs }
