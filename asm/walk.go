package asm

import "math/rand/v2"

// DefaultMaxWalkBlocks bounds a single walk; loops in the CFG would
// otherwise walk forever.
const DefaultMaxWalkBlocks = 64

// RandomWalks linearizes a control-flow graph into n instruction
// sequences. Each walk starts at the entry block, appends the block's
// instructions, and follows a uniformly random successor edge until it
// reaches a block with no successors or has visited maxBlocks blocks.
// maxBlocks <= 0 selects DefaultMaxWalkBlocks.
func RandomWalks(entry *BasicBlock, n, maxBlocks int, rng *rand.Rand) [][]Instruction {
	if entry == nil || n <= 0 {
		return nil
	}
	if maxBlocks <= 0 {
		maxBlocks = DefaultMaxWalkBlocks
	}

	seqs := make([][]Instruction, 0, n)
	for w := 0; w < n; w++ {
		var seq []Instruction
		cur := entry
		for visited := 0; cur != nil && visited < maxBlocks; visited++ {
			seq = append(seq, cur.Instructions()...)
			succs := cur.Successors()
			if len(succs) == 0 {
				break
			}
			cur = succs[rng.IntN(len(succs))]
		}
		seqs = append(seqs, seq)
	}
	return seqs
}
