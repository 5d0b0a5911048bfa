package asm

import "strings"

// BasicBlock is a straight-line run of instructions with edges to its
// possible successors.
type BasicBlock struct {
	Label  string
	instrs []Instruction
	succs  []*BasicBlock
}

func NewBasicBlock(label string) *BasicBlock {
	return &BasicBlock{Label: label}
}

func (b *BasicBlock) Append(ins Instruction) {
	b.instrs = append(b.instrs, ins)
}

func (b *BasicBlock) AddSuccessor(s *BasicBlock) {
	b.succs = append(b.succs, s)
}

func (b *BasicBlock) Instructions() []Instruction {
	return b.instrs
}

func (b *BasicBlock) Successors() []*BasicBlock {
	return b.succs
}

// Opcodes that never fall through to the next block.
var noFallthrough = map[string]bool{
	"jmp":  true,
	"ret":  true,
	"retn": true,
}

func isBranch(op string) bool {
	return noFallthrough[op] || strings.HasPrefix(op, "j")
}

// BuildCFG splits a function listing into basic blocks and wires control
// edges. A new block starts at every label; an edge is added for each
// operand naming a label, plus a fall-through edge unless the block ends
// in an unconditional jump or return. Returns the entry block, or nil if
// the listing holds no instructions.
func BuildCFG(lines []string) *BasicBlock {
	var blocks []*BasicBlock
	byLabel := make(map[string]*BasicBlock)

	cur := NewBasicBlock("")
	blocks = append(blocks, cur)
	for _, line := range lines {
		trimmed := strings.TrimSpace(stripComment(line))
		if strings.HasSuffix(trimmed, ":") {
			label := strings.TrimSuffix(trimmed, ":")
			cur = NewBasicBlock(label)
			blocks = append(blocks, cur)
			byLabel[label] = cur
			continue
		}
		if ins, ok := ParseInstruction(line); ok {
			cur.Append(ins)
			// A branch ends its block so the edge wiring below sees
			// the branch as the block's last instruction.
			if isBranch(ins.Op()) {
				cur = NewBasicBlock("")
				blocks = append(blocks, cur)
			}
		}
	}

	// Drop empty blocks (a label directly followed by another label, or
	// an empty leading block) so walks never stall on them.
	kept := blocks[:0]
	for _, b := range blocks {
		if len(b.instrs) > 0 {
			kept = append(kept, b)
		} else if b.Label != "" {
			delete(byLabel, b.Label)
		}
	}
	blocks = kept
	if len(blocks) == 0 {
		return nil
	}

	for i, b := range blocks {
		last := b.instrs[len(b.instrs)-1]
		for _, a := range last.Args() {
			if t, ok := byLabel[a]; ok {
				b.AddSuccessor(t)
			}
		}
		if i+1 < len(blocks) && !noFallthrough[last.Op()] {
			b.AddSuccessor(blocks[i+1])
		}
	}
	return blocks[0]
}
