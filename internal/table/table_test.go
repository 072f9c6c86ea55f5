package table

import (
	"testing"

	"github.com/PREPONDERANCE/Lox/internal/value"
)

func newString(s string) *value.ObjString {
	return &value.ObjString{Chars: s, Length: len(s), Hash: value.HashString(s)}
}

func TestSetGetDelete(t *testing.T) {
	tb := New()
	a := newString("a")
	b := newString("b")

	if isNew := tb.Set(a, value.Number(1)); !isNew {
		t.Fatalf("expected new insertion for a")
	}
	if isNew := tb.Set(b, value.Number(2)); !isNew {
		t.Fatalf("expected new insertion for b")
	}
	if isNew := tb.Set(a, value.Number(3)); isNew {
		t.Fatalf("expected overwrite, not new insertion, for a")
	}

	if v, ok := tb.Get(a); !ok || v.Number != 3 {
		t.Fatalf("expected a=3, got %v ok=%v", v, ok)
	}
	if v, ok := tb.Get(b); !ok || v.Number != 2 {
		t.Fatalf("expected b=2, got %v ok=%v", v, ok)
	}

	if !tb.Delete(a) {
		t.Fatalf("expected delete of a to succeed")
	}
	if _, ok := tb.Get(a); ok {
		t.Fatalf("expected a to be gone after delete")
	}
	// b must still be reachable: tombstones must not break the probe chain.
	if v, ok := tb.Get(b); !ok || v.Number != 2 {
		t.Fatalf("expected b to survive deletion of a, got %v ok=%v", v, ok)
	}
}

func TestGetOnEmptyTable(t *testing.T) {
	tb := New()
	a := newString("a")
	if _, ok := tb.Get(a); ok {
		t.Fatalf("expected miss on empty table")
	}
}

func TestDeleteThenReinsertKeepsSurvivorsReachable(t *testing.T) {
	tb := New()
	keys := make([]*value.ObjString, 0, 20)
	for i := 0; i < 20; i++ {
		k := newString(string(rune('a' + i)))
		keys = append(keys, k)
		tb.Set(k, value.Number(float64(i)))
	}
	for _, k := range keys[:10] {
		tb.Delete(k)
	}
	for i := 0; i < 10; i++ {
		k := newString(string(rune('A' + i)))
		tb.Set(k, value.Number(float64(i)))
	}
	for i, k := range keys[10:] {
		v, ok := tb.Get(k)
		if !ok || v.Number != float64(i+10) {
			t.Fatalf("expected surviving key %d to resolve, got %v ok=%v", i, v, ok)
		}
	}
}

func TestFindStringToleratesEmptyTable(t *testing.T) {
	tb := New()
	if tb.FindString("abc", value.HashString("abc")) != nil {
		t.Fatalf("expected no match on empty table")
	}
}

func TestFindStringByContent(t *testing.T) {
	tb := New()
	s := newString("hello")
	tb.Set(s, value.Bool(true))

	found := tb.FindString("hello", value.HashString("hello"))
	if found != s {
		t.Fatalf("expected FindString to return the same *ObjString by identity")
	}
	if tb.FindString("nope", value.HashString("nope")) != nil {
		t.Fatalf("expected miss for absent string")
	}
}

func TestGrowthCrossesLoadFactor(t *testing.T) {
	tb := New()
	if tb.Capacity() != 0 {
		t.Fatalf("expected initial capacity 0")
	}
	tb.Set(newString("x"), value.Number(1))
	if tb.Capacity() != 8 {
		t.Fatalf("expected first growth to capacity 8, got %d", tb.Capacity())
	}
	// 0.75*8 == 6: inserting the 7th distinct key (count 6, 6+1=7 > 6) must grow to 16.
	for i := 0; i < 5; i++ {
		tb.Set(newString(string(rune('a'+i))), value.Number(float64(i)))
	}
	if tb.Capacity() != 8 {
		t.Fatalf("expected capacity to stay 8 through the 6th key, got %d", tb.Capacity())
	}
	tb.Set(newString("f"), value.Number(6))
	if tb.Capacity() != 16 {
		t.Fatalf("expected growth to capacity 16 once load factor crossed, got %d", tb.Capacity())
	}
}
