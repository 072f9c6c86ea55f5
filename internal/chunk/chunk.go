// Package chunk implements the Chunk described in spec.md §4.1: a growable
// bytecode buffer with a parallel source-line table and a constant pool.
package chunk

import (
	"fmt"

	"github.com/PREPONDERANCE/Lox/internal/value"
)

type OpCode byte

const (
	OP_CONSTANT OpCode = iota
	OP_NIL
	OP_TRUE
	OP_FALSE
	OP_POP
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_GET_GLOBAL
	OP_DEFINE_GLOBAL
	OP_SET_GLOBAL
	OP_EQUAL
	OP_GREATER
	OP_LESS
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_NOT
	OP_NEGATE
	OP_PRINT
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_LOOP
	OP_RETURN
)

func (op OpCode) String() string {
	switch op {
	case OP_CONSTANT:
		return "OP_CONSTANT"
	case OP_NIL:
		return "OP_NIL"
	case OP_TRUE:
		return "OP_TRUE"
	case OP_FALSE:
		return "OP_FALSE"
	case OP_POP:
		return "OP_POP"
	case OP_GET_LOCAL:
		return "OP_GET_LOCAL"
	case OP_SET_LOCAL:
		return "OP_SET_LOCAL"
	case OP_GET_GLOBAL:
		return "OP_GET_GLOBAL"
	case OP_DEFINE_GLOBAL:
		return "OP_DEFINE_GLOBAL"
	case OP_SET_GLOBAL:
		return "OP_SET_GLOBAL"
	case OP_EQUAL:
		return "OP_EQUAL"
	case OP_GREATER:
		return "OP_GREATER"
	case OP_LESS:
		return "OP_LESS"
	case OP_ADD:
		return "OP_ADD"
	case OP_SUBTRACT:
		return "OP_SUBTRACT"
	case OP_MULTIPLY:
		return "OP_MULTIPLY"
	case OP_DIVIDE:
		return "OP_DIVIDE"
	case OP_NOT:
		return "OP_NOT"
	case OP_NEGATE:
		return "OP_NEGATE"
	case OP_PRINT:
		return "OP_PRINT"
	case OP_JUMP:
		return "OP_JUMP"
	case OP_JUMP_IF_FALSE:
		return "OP_JUMP_IF_FALSE"
	case OP_LOOP:
		return "OP_LOOP"
	case OP_RETURN:
		return "OP_RETURN"
	default:
		return fmt.Sprintf("OP_%d", op)
	}
}

// MaxConstants is the 256-entry ceiling spec.md §4.1 imposes because
// constants are addressed by a single unsigned byte.
const MaxConstants = 256

// Chunk is a self-contained executable unit: bytecode, source-line table,
// constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []value.Value
}

func New() *Chunk {
	return &Chunk{}
}

// Write appends a byte to the code stream and its originating source line
// to the parallel Lines array, in lockstep (spec.md §4.1, §8's
// |chunk.code| == |chunk.lines| invariant).
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// AddConstant appends v to the constant pool and returns its index, or an
// error once the pool would exceed 256 entries.
func (c *Chunk) AddConstant(v value.Value) (byte, error) {
	if len(c.Constants) >= MaxConstants {
		return 0, fmt.Errorf("Too many constants in one chunk.")
	}
	c.Constants = append(c.Constants, v)
	return byte(len(c.Constants) - 1), nil
}

// Disassemble prints every instruction in the chunk, labelled name, to
// stdout. This is out-of-scope tooling per spec.md §1 (disassembler/trace
// output), kept for parity with the teacher's `--disassembly` CLI flag.
func (c *Chunk) Disassemble(name string) {
	fmt.Printf("== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = c.DisassembleInstruction(offset)
	}
}

func (c *Chunk) DisassembleInstruction(offset int) int {
	fmt.Printf("%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		fmt.Printf("   | ")
	} else {
		fmt.Printf("%4d ", c.Lines[offset])
	}

	instruction := OpCode(c.Code[offset])
	switch instruction {
	case OP_CONSTANT:
		return c.constantInstruction(instruction.String(), offset)
	case OP_NIL, OP_TRUE, OP_FALSE, OP_POP, OP_EQUAL, OP_GREATER, OP_LESS,
		OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE, OP_NOT, OP_NEGATE,
		OP_PRINT, OP_RETURN:
		return c.simpleInstruction(instruction.String(), offset)
	case OP_GET_LOCAL, OP_SET_LOCAL:
		return c.byteInstruction(instruction.String(), offset)
	case OP_GET_GLOBAL, OP_DEFINE_GLOBAL, OP_SET_GLOBAL:
		return c.constantInstruction(instruction.String(), offset)
	case OP_JUMP, OP_JUMP_IF_FALSE:
		return c.jumpInstruction(instruction.String(), 1, offset)
	case OP_LOOP:
		return c.jumpInstruction(instruction.String(), -1, offset)
	default:
		fmt.Printf("Unknown opcode %d\n", instruction)
		return offset + 1
	}
}

func (c *Chunk) simpleInstruction(name string, offset int) int {
	fmt.Printf("%s\n", name)
	return offset + 1
}

func (c *Chunk) constantInstruction(name string, offset int) int {
	constant := c.Code[offset+1]
	fmt.Printf("%-18s %4d '%s'\n", name, constant, c.Constants[constant].String())
	return offset + 2
}

func (c *Chunk) byteInstruction(name string, offset int) int {
	slot := c.Code[offset+1]
	fmt.Printf("%-18s %4d\n", name, slot)
	return offset + 2
}

func (c *Chunk) jumpInstruction(name string, sign int, offset int) int {
	jump := int(uint16(c.Code[offset+1])<<8 | uint16(c.Code[offset+2]))
	fmt.Printf("%-18s %4d -> %d\n", name, offset, offset+3+sign*jump)
	return offset + 3
}
