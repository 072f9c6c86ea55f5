package chunk

import (
	"testing"

	"github.com/PREPONDERANCE/Lox/internal/value"
)

func TestWriteKeepsLinesParallel(t *testing.T) {
	c := New()
	c.Write(byte(OP_NIL), 1)
	c.Write(byte(OP_PRINT), 1)
	c.Write(byte(OP_RETURN), 2)

	if len(c.Code) != len(c.Lines) {
		t.Fatalf("expected len(code)==len(lines), got %d vs %d", len(c.Code), len(c.Lines))
	}
	if c.Lines[2] != 2 {
		t.Fatalf("expected third instruction on line 2, got %d", c.Lines[2])
	}
}

func TestAddConstantIndexing(t *testing.T) {
	c := New()
	idx, err := c.AddConstant(value.Number(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 0 {
		t.Fatalf("expected first constant at index 0, got %d", idx)
	}
	idx2, err := c.AddConstant(value.Number(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx2 != 1 {
		t.Fatalf("expected second constant at index 1, got %d", idx2)
	}
}

func TestAddConstantOverflow(t *testing.T) {
	c := New()
	for i := 0; i < MaxConstants; i++ {
		if _, err := c.AddConstant(value.Number(float64(i))); err != nil {
			t.Fatalf("unexpected error at constant %d: %v", i, err)
		}
	}
	if _, err := c.AddConstant(value.Number(999)); err == nil {
		t.Fatalf("expected error on the 257th constant")
	}
}
