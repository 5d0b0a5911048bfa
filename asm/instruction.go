// Package asm models assembly code the way the trainer consumes it:
// parsed instructions grouped into basic blocks, linearized into
// instruction sequences by random walks over the control-flow graph.
package asm

import "strings"

// Instruction is a single parsed assembly instruction. Instructions are
// immutable values; the opcode and every operand is a plain token name
// resolved against the vocabulary at training time.
type Instruction struct {
	op   string
	args []string
}

// NewInstruction builds an instruction from an opcode and its operands.
func NewInstruction(op string, args ...string) Instruction {
	return Instruction{op: op, args: args}
}

func (i Instruction) Op() string {
	return i.op
}

func (i Instruction) Args() []string {
	return i.args
}

// String renders the instruction roughly as it appeared in the listing.
func (i Instruction) String() string {
	if len(i.args) == 0 {
		return i.op
	}
	return i.op + " " + strings.Join(i.args, ", ")
}

// ParseInstruction parses one listing line into an instruction. The
// second return is false for lines that carry no instruction: blanks,
// comments, and labels (labels are handled by the CFG builder).
func ParseInstruction(line string) (Instruction, bool) {
	line = stripComment(line)
	line = strings.TrimSpace(line)
	if line == "" || strings.HasSuffix(line, ":") {
		return Instruction{}, false
	}

	op := line
	rest := ""
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		op, rest = line[:i], strings.TrimSpace(line[i+1:])
	}

	var args []string
	if rest != "" {
		for _, a := range strings.Split(rest, ",") {
			a = strings.TrimSpace(a)
			if a != "" {
				args = append(args, a)
			}
		}
	}
	return Instruction{op: strings.ToLower(op), args: args}, true
}

func stripComment(line string) string {
	if i := strings.IndexAny(line, ";#"); i >= 0 {
		return line[:i]
	}
	return line
}
