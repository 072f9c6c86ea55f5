package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PREPONDERANCE/Lox/internal/intern"
)

func compile(t *testing.T, source string) (ok bool, errMsg string) {
	t.Helper()
	_, err := Compile(source, intern.New())
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

func TestCompilesSimpleProgram(t *testing.T) {
	ok, msg := compile(t, `print 1 + 2 * 3;`)
	if !ok {
		t.Fatalf("expected compile success, got error: %s", msg)
	}
}

func TestGlobalVarSelfReferenceIsLegal(t *testing.T) {
	ok, msg := compile(t, `var a = a;`)
	if !ok {
		t.Fatalf("expected global `var a = a;` to compile, got: %s", msg)
	}
}

func TestLocalVarSelfReferenceIsCompileError(t *testing.T) {
	ok, msg := compile(t, `{ var a = a; }`)
	if ok {
		t.Fatalf("expected compile error for local self-reference")
	}
	if !strings.Contains(msg, "Can't read local variable in its own initializer.") {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestDuplicateLocalIsCompileError(t *testing.T) {
	ok, msg := compile(t, `{ var a; var a; }`)
	if ok {
		t.Fatalf("expected compile error for duplicate local")
	}
	if !strings.Contains(msg, "Already a variable with this name exists in the scope") {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestShadowingInNestedScopeIsLegal(t *testing.T) {
	ok, msg := compile(t, `{ var a = 1; { var a = 2; } }`)
	if !ok {
		t.Fatalf("expected shadowing in a nested scope to compile, got: %s", msg)
	}
}

func TestInvalidAssignmentTarget(t *testing.T) {
	ok, msg := compile(t, `var a = 1; var b = 2; a * b = 3;`)
	if ok {
		t.Fatalf("expected compile error for invalid assignment target")
	}
	if !strings.Contains(msg, "Invalid assignment target.") {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestUndefinedSyntaxReportsExpectExpression(t *testing.T) {
	ok, msg := compile(t, `var a = ;`)
	if ok {
		t.Fatalf("expected compile error")
	}
	if !strings.Contains(msg, "Expect expression.") {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestExactly256LocalsCompile(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i := 0; i < 256; i++ {
		fmt.Fprintf(&sb, "var v%d = %d;\n", i, i)
	}
	sb.WriteString("}\n")

	ok, msg := compile(t, sb.String())
	if !ok {
		t.Fatalf("expected exactly 256 locals to compile, got: %s", msg)
	}
}

func TestExactly257LocalsFail(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("{\n")
	for i := 0; i < 257; i++ {
		fmt.Fprintf(&sb, "var v%d = %d;\n", i, i)
	}
	sb.WriteString("}\n")

	ok, msg := compile(t, sb.String())
	if ok {
		t.Fatalf("expected 257 locals to fail to compile")
	}
	if !strings.Contains(msg, "Too many local variables in function.") {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestExactly256ConstantsCompile(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 256; i++ {
		fmt.Fprintf(&sb, "print %d;\n", i)
	}
	ok, msg := compile(t, sb.String())
	if !ok {
		t.Fatalf("expected exactly 256 constants to compile, got: %s", msg)
	}
}

func TestExactly257ConstantsFail(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 257; i++ {
		fmt.Fprintf(&sb, "print %d;\n", i)
	}
	ok, msg := compile(t, sb.String())
	if ok {
		t.Fatalf("expected 257 constants to fail to compile")
	}
	if !strings.Contains(msg, "Too many constants in one chunk.") {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestLoopBodyOverflowFailsToCompile(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("while (true) {\n")
	// Each statement compiles to 8 bytes and uses no constants, so 10000 of
	// them (80000 bytes) comfortably exceed a 16-bit backward-jump offset.
	for i := 0; i < 10000; i++ {
		sb.WriteString("true == true == true == true;\n")
	}
	sb.WriteString("}\n")

	ok, msg := compile(t, sb.String())
	if ok {
		t.Fatalf("expected a loop body large enough to overflow a 16-bit offset to fail")
	}
	if !strings.Contains(msg, "Loop body too large") {
		t.Fatalf("unexpected error message: %s", msg)
	}
}

func TestErrorAtEndFormat(t *testing.T) {
	ok, msg := compile(t, `var a = 1`)
	if ok {
		t.Fatalf("expected compile error for missing semicolon")
	}
	if !strings.Contains(msg, "at end") {
		t.Fatalf("expected error to report location at end, got: %s", msg)
	}
}
