// Package vm implements the stack-based bytecode interpreter from
// spec.md §4.6: it executes a Chunk emitted by internal/compiler, owning
// the operand stack, the instruction pointer, the globals table, the
// string intern pool, and (conceptually) the heap-object list.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/PREPONDERANCE/Lox/internal/chunk"
	"github.com/PREPONDERANCE/Lox/internal/compiler"
	"github.com/PREPONDERANCE/Lox/internal/intern"
	"github.com/PREPONDERANCE/Lox/internal/table"
	"github.com/PREPONDERANCE/Lox/internal/value"
)

// StackMax is the fixed operand-stack capacity from spec.md §4.6.
const StackMax = 256

type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOK:
		return "OK"
	case InterpretCompileError:
		return "COMPILE_ERROR"
	case InterpretRuntimeError:
		return "RUNTIME_ERROR"
	default:
		return "UNKNOWN"
	}
}

// VM owns every piece of process-wide state a single Lox program needs:
// the operand stack, the chunk currently executing and its instruction
// pointer, the globals environment, and the string intern pool (shared
// with the compiler so identifiers/literals and runtime-concatenated
// strings are interned into the same table).
type VM struct {
	chunk *chunk.Chunk
	ip    int

	stack    [StackMax]value.Value
	stackTop int

	globals *table.Table
	pool    *intern.Pool

	stdout io.Writer
	stderr io.Writer
}

// New creates a VM writing normal output to stdout and errors to stderr.
func New() *VM {
	return NewWithIO(os.Stdout, os.Stderr)
}

// NewWithIO creates a VM with the given output streams, as spec.md §6
// requires ("writes normal output and error output to two distinct
// streams").
func NewWithIO(stdout, stderr io.Writer) *VM {
	return &VM{
		globals: table.New(),
		pool:    intern.New(),
		stdout:  stdout,
		stderr:  stderr,
	}
}

// Close walks the intrusive object list once, as spec.md §5 describes for
// teardown. Go's garbage collector already reclaims every ObjString once
// it is unreachable, so this is a no-op traversal kept only so the VM's
// lifecycle mirrors clox's explicit bulk-release pass.
func (vm *VM) Close() {
	for obj := vm.pool.Objects(); obj != nil; obj = obj.Next {
		_ = obj
	}
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// Disassemble compiles source against the VM's own intern pool and prints
// its bytecode under name, without executing it. It exists for the CLI's
// --disassembly flag, mirroring the teacher's chunk.DisassembleAll call
// ahead of Interpret in cmd/noxy/main.go.
func (vm *VM) Disassemble(name, source string) error {
	c, err := compiler.Compile(source, vm.pool)
	if err != nil {
		return err
	}
	c.Disassemble(name)
	return nil
}

// Interpret compiles and runs source, per the public core API in
// spec.md §6. Globals and the intern pool persist across calls on the
// same VM.
func (vm *VM) Interpret(source string) InterpretResult {
	c, err := compiler.Compile(source, vm.pool)
	if err != nil {
		fmt.Fprintln(vm.stderr, err)
		return InterpretCompileError
	}

	vm.chunk = c
	vm.ip = 0
	vm.resetStack()

	if err := vm.run(); err != nil {
		fmt.Fprint(vm.stderr, err)
		return InterpretRuntimeError
	}
	return InterpretOK
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readConstant() value.Value {
	return vm.chunk.Constants[vm.readByte()]
}

func (vm *VM) readShort() uint16 {
	hi := vm.chunk.Code[vm.ip]
	lo := vm.chunk.Code[vm.ip+1]
	vm.ip += 2
	return uint16(hi)<<8 | uint16(lo)
}

// runtimeError formats a runtime error the way spec.md §4.6/§7 requires:
// the message, then "\n[line L] in script\n" using the lines table at
// ip-1. It resets the operand stack but leaves every other piece of VM
// state (globals, intern pool) intact, so the VM remains usable for a
// subsequent Interpret call.
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)

	line := 0
	if idx := vm.ip - 1; idx >= 0 && idx < len(vm.chunk.Lines) {
		line = vm.chunk.Lines[idx]
	}

	vm.resetStack()
	return fmt.Errorf("%s\n[line %d] in script\n", msg, line)
}

func (vm *VM) run() error {
	for {
		instruction := chunk.OpCode(vm.readByte())

		switch instruction {
		case chunk.OP_CONSTANT:
			vm.push(vm.readConstant())

		case chunk.OP_NIL:
			vm.push(value.Nil())
		case chunk.OP_TRUE:
			vm.push(value.Bool(true))
		case chunk.OP_FALSE:
			vm.push(value.Bool(false))

		case chunk.OP_POP:
			vm.pop()

		case chunk.OP_GET_LOCAL:
			slot := vm.readByte()
			vm.push(vm.stack[slot])

		case chunk.OP_SET_LOCAL:
			slot := vm.readByte()
			vm.stack[slot] = vm.peek(0)

		case chunk.OP_GET_GLOBAL:
			name := vm.readConstant().Obj
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable %s.", name.Chars)
			}
			vm.push(v)

		case chunk.OP_DEFINE_GLOBAL:
			name := vm.readConstant().Obj
			// The pop happens after the insert so a table resize during
			// Set can never orphan the value being defined.
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case chunk.OP_SET_GLOBAL:
			name := vm.readConstant().Obj
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable %s.", name.Chars)
			}

		case chunk.OP_EQUAL:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case chunk.OP_GREATER:
			if err := vm.numericComparison(func(a, b float64) bool { return a > b }); err != nil {
				return err
			}
		case chunk.OP_LESS:
			if err := vm.numericComparison(func(a, b float64) bool { return a < b }); err != nil {
				return err
			}

		case chunk.OP_ADD:
			if err := vm.add(); err != nil {
				return err
			}
		case chunk.OP_SUBTRACT:
			if err := vm.numericArith(func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}
		case chunk.OP_MULTIPLY:
			if err := vm.numericArith(func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}
		case chunk.OP_DIVIDE:
			if err := vm.numericArith(func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}

		case chunk.OP_NOT:
			v := vm.pop()
			vm.push(value.Bool(v.IsFalsey()))

		case chunk.OP_NEGATE:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			v := vm.pop()
			vm.push(value.Number(-v.Number))

		case chunk.OP_PRINT:
			v := vm.pop()
			fmt.Fprintln(vm.stdout, v.String())

		case chunk.OP_JUMP:
			offset := vm.readShort()
			vm.ip += int(offset)

		case chunk.OP_JUMP_IF_FALSE:
			offset := vm.readShort()
			if vm.peek(0).IsFalsey() {
				vm.ip += int(offset)
			}

		case chunk.OP_LOOP:
			offset := vm.readShort()
			vm.ip -= int(offset)

		case chunk.OP_RETURN:
			return nil

		default:
			return vm.runtimeError("Unknown opcode %d.", instruction)
		}
	}
}

func (vm *VM) numericComparison(cmp func(a, b float64) bool) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must both be numbers.")
	}
	b := vm.pop()
	a := vm.pop()
	vm.push(value.Bool(cmp(a.Number, b.Number)))
	return nil
}

func (vm *VM) numericArith(op func(a, b float64) float64) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must both be numbers.")
	}
	b := vm.pop()
	a := vm.pop()
	vm.push(value.Number(op(a.Number, b.Number)))
	return nil
}

// add implements OP_ADD's dual behavior from spec.md §4.6: string
// concatenation when both operands are strings, numeric addition when
// both are numbers, a runtime error otherwise.
func (vm *VM) add() error {
	if vm.peek(0).IsString() && vm.peek(1).IsString() {
		vm.concatenate()
		return nil
	}
	if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
		b := vm.pop()
		a := vm.pop()
		vm.push(value.Number(a.Number + b.Number))
		return nil
	}
	return vm.runtimeError("Operands must be two numbers or two strings.")
}

// concatenate pops b then a (in that order, so "hi"+"there" reads
// "hithere") and interns the joined result through take_string.
func (vm *VM) concatenate() {
	b := vm.pop()
	a := vm.pop()
	joined := a.Obj.Chars + b.Obj.Chars
	obj := vm.pool.TakeString(joined)
	vm.push(value.Obj(obj))
}
