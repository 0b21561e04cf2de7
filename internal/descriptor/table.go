package descriptor

import "github.com/willf/bitset"

// Table is a data structure mapping small integer descriptors to objects.
//
// Allocation always picks the lowest free descriptor, mirroring the POSIX
// rule for open(2), which keeps guest descriptor numbers dense and
// predictable. The set of live descriptors is tracked in a bitset so that
// lookups are a single bit test followed by an index into the object slice.
type Table[Descriptor ~int32 | ~uint32, Object any] struct {
	live  bitset.BitSet
	table []Object
}

// Len returns the number of objects stored in the table.
func (t *Table[Descriptor, Object]) Len() int {
	return int(t.live.Count())
}

// Grow ensures that t has room for n objects without reallocating.
func (t *Table[Descriptor, Object]) Grow(n int) {
	if n > len(t.table) {
		table := make([]Object, n)
		copy(table, t.table)
		t.table = table
	}
}

// Insert inserts the object in the table at the lowest free descriptor and
// returns that descriptor.
//
// The same object may be inserted more than once, each insertion returns a
// different descriptor.
func (t *Table[Descriptor, Object]) Insert(object Object) Descriptor {
	i, ok := t.live.NextClear(0)
	if !ok {
		i = t.live.Len()
	}
	if int(i) >= len(t.table) {
		n := 2 * len(t.table)
		if n <= int(i) {
			n = int(i) + 1
		}
		t.Grow(n)
	}
	t.live.Set(i)
	t.table[i] = object
	return Descriptor(i)
}

// Assign places the object at a specific descriptor. If another object was
// already associated with that number it is returned and replaced is true.
func (t *Table[Descriptor, Object]) Assign(desc Descriptor, object Object) (prev Object, replaced bool) {
	if int(desc) >= len(t.table) {
		t.Grow(int(desc) + 1)
	}
	i := uint(desc)
	if t.live.Test(i) {
		prev, replaced = t.table[i], true
	}
	t.live.Set(i)
	t.table[i] = object
	return prev, replaced
}

// Access returns a pointer to the object associated with desc, or nil if
// there is none. The pointer is invalidated by the next Insert or Assign.
func (t *Table[Descriptor, Object]) Access(desc Descriptor) *Object {
	if i := int(desc); i >= 0 && i < len(t.table) && t.live.Test(uint(i)) {
		return &t.table[i]
	}
	return nil
}

// Lookup returns the object associated with the given descriptor.
func (t *Table[Descriptor, Object]) Lookup(desc Descriptor) (object Object, found bool) {
	if ptr := t.Access(desc); ptr != nil {
		object, found = *ptr, true
	}
	return object, found
}

// Delete removes the object stored at desc, if any.
func (t *Table[Descriptor, Object]) Delete(desc Descriptor) {
	if i := int(desc); i >= 0 && i < len(t.table) && t.live.Test(uint(i)) {
		var zero Object
		t.table[i] = zero
		t.live.Clear(uint(i))
	}
}

// Range calls f for each descriptor in ascending order. f may return false to
// stop the iteration.
func (t *Table[Descriptor, Object]) Range(f func(Descriptor, Object) bool) {
	for i, ok := t.live.NextSet(0); ok; i, ok = t.live.NextSet(i + 1) {
		if !f(Descriptor(i), t.table[i]) {
			return
		}
	}
}

// Reset clears the content of the table.
func (t *Table[Descriptor, Object]) Reset() {
	t.live.ClearAll()
	var zero Object
	for i := range t.table {
		t.table[i] = zero
	}
}
