// Package intern implements the string-interning entry points from
// spec.md §4.2 (copy_string/take_string) on top of the hash table in
// internal/table, and owns the intrusive object list every live ObjString
// is linked into.
//
// clox distinguishes copy_string (copies caller-owned bytes) from
// take_string (takes ownership of a caller-allocated buffer, freeing it on
// an intern hit) because C heap buffers need an owner. Go strings are
// immutable values with no separate free step, so both entry points share
// one implementation here; both are kept so call sites read the same way
// the compiler (copy_string, from literal lexemes) and the VM
// (take_string, from concatenation) expect.
package intern

import (
	"github.com/PREPONDERANCE/Lox/internal/table"
	"github.com/PREPONDERANCE/Lox/internal/value"
)

// Pool is the process-wide (here: per-VM) string intern table plus the
// head of the intrusive list of every ObjString it has ever allocated.
type Pool struct {
	strings *table.Table
	objects *value.ObjString
}

func New() *Pool {
	return &Pool{strings: table.New()}
}

func (p *Pool) intern(s string) *value.ObjString {
	hash := value.HashString(s)
	if existing := p.strings.FindString(s, hash); existing != nil {
		return existing
	}

	obj := &value.ObjString{Chars: s, Length: len(s), Hash: hash}
	obj.Next = p.objects
	p.objects = obj
	p.strings.Set(obj, value.Bool(true))
	return obj
}

// CopyString interns s, allocating a fresh ObjString only if no interned
// match already exists.
func (p *Pool) CopyString(s string) *value.ObjString {
	return p.intern(s)
}

// TakeString interns s on the caller's behalf — conceptually "takes
// ownership" of a fresh buffer, as in clox; see the package doc comment
// for why that collapses to CopyString's behavior in Go.
func (p *Pool) TakeString(s string) *value.ObjString {
	return p.intern(s)
}

// Objects returns the head of the intrusive list of every live ObjString
// this pool has allocated, for the VM's single bulk-release pass at
// teardown (spec.md §3, §5).
func (p *Pool) Objects() *value.ObjString {
	return p.objects
}
