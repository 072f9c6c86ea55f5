// Package table implements the open-addressed, linear-probing,
// tombstone-aware hash table described in spec.md §4.3. A single Table
// implementation backs both the VM's globals environment and the
// process-wide string intern pool.
package table

import "github.com/PREPONDERANCE/Lox/internal/value"

// entry states, encoded the way spec.md §3 defines them:
//   empty:     Key == nil && Value is the zero Value (VAL_NIL)
//   tombstone: Key == nil && Value == Bool(true)
//   live:      Key != nil
type entry struct {
	Key   *value.ObjString
	Value value.Value
}

// Table is the hash map described in spec.md §4.3.
type Table struct {
	count    int
	entries  []entry
}

func New() *Table {
	return &Table{}
}

func (t *Table) Count() int    { return t.count }
func (t *Table) Capacity() int { return len(t.entries) }

// findEntry implements spec.md §4.3's find_entry: linear probe from
// hash mod cap, remembering the first tombstone seen, stopping at a live
// match or an empty (non-tombstone) slot.
func findEntry(entries []entry, key *value.ObjString) *entry {
	cap := len(entries)
	index := int(key.Hash) % cap
	var tombstone *entry

	for {
		e := &entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				// truly empty
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			// tombstone
			if tombstone == nil {
				tombstone = e
			}
		} else if e.Key == key {
			return e
		}
		index = (index + 1) % cap
	}
}

func adjustCapacity(t *Table, newCap int) {
	entries := make([]entry, newCap)
	for i := range entries {
		entries[i] = entry{Key: nil, Value: value.Nil()}
	}

	t.count = 0
	for i := range t.entries {
		old := &t.entries[i]
		if old.Key == nil {
			continue
		}
		dst := findEntry(entries, old.Key)
		dst.Key = old.Key
		dst.Value = old.Value
		t.count++
	}

	t.entries = entries
}

// Set implements spec.md §4.3's set: grows at a 0.75 load factor (new
// capacity 8, or double), inserts or overwrites, and reports whether the
// key was newly inserted.
func (t *Table) Set(key *value.ObjString, v value.Value) bool {
	if t.count+1 > (len(t.entries)*3)/4 {
		newCap := 8
		if len(t.entries) > 0 {
			newCap = len(t.entries) * 2
		}
		adjustCapacity(t, newCap)
	}

	e := findEntry(t.entries, key)
	isNewKey := e.Key == nil
	if isNewKey && e.Value.IsNil() {
		t.count++
	}

	e.Key = key
	e.Value = v
	return isNewKey
}

// Get implements spec.md §4.3's get.
func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if t.count == 0 {
		return value.Nil(), false
	}
	e := findEntry(t.entries, key)
	if e.Key == nil {
		return value.Nil(), false
	}
	return e.Value, true
}

// Delete implements spec.md §4.3's delete: tombstones the slot, never
// decrements count so tombstones keep probe chains intact.
func (t *Table) Delete(key *value.ObjString) bool {
	if t.count == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.Key == nil {
		return false
	}
	e.Key = nil
	e.Value = value.Bool(true)
	return true
}

// FindString implements spec.md §4.3's find_string: the interning lookup,
// which must tolerate an empty (capacity 0) table and compares by content
// rather than identity.
func (t *Table) FindString(chars string, hash uint32) *value.ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	cap := len(t.entries)
	index := int(hash) % cap

	for {
		e := &t.entries[index]
		if e.Key == nil {
			if e.Value.IsNil() {
				return nil
			}
		} else if e.Key.Length == len(chars) && e.Key.Hash == hash && e.Key.Chars == chars {
			return e.Key
		}
		index = (index + 1) % cap
	}
}
