package descriptor_test

import (
	"testing"

	"github.com/stealthrocket/wasi-aot/internal/descriptor"
)

type fd int32

type file struct{ name string }

func TestTable(t *testing.T) {
	table := new(descriptor.Table[fd, file])

	if n := table.Len(); n != 0 {
		t.Errorf("new table is not empty: length=%d", n)
	}

	v0 := file{name: "1"}
	v1 := file{name: "2"}
	v2 := file{name: "3"}

	k0 := table.Insert(v0)
	k1 := table.Insert(v1)
	k2 := table.Insert(v2)

	for _, lookup := range []struct {
		key fd
		val file
	}{
		{key: k0, val: v0},
		{key: k1, val: v1},
		{key: k2, val: v2},
	} {
		if v, ok := table.Lookup(lookup.key); !ok {
			t.Errorf("value not found for key '%v'", lookup.key)
		} else if v.name != lookup.val.name {
			t.Errorf("wrong value returned for key '%v': want=%v got=%v", lookup.key, lookup.val.name, v.name)
		}
	}

	if n := table.Len(); n != 3 {
		t.Errorf("wrong table length: want=3 got=%d", n)
	}

	var seen []fd
	table.Range(func(k fd, v file) bool {
		seen = append(seen, k)
		return true
	})
	if len(seen) != 3 || seen[0] != k0 || seen[1] != k1 || seen[2] != k2 {
		t.Errorf("wrong keys found while ranging over table: %v", seen)
	}

	for i, key := range []fd{k1, k0, k2} {
		table.Delete(key)
		if _, ok := table.Lookup(key); ok {
			t.Errorf("item found after deletion of '%v'", key)
		}
		if n, want := table.Len(), 3-(i+1); n != want {
			t.Errorf("wrong table length after deletion: want=%d got=%d", want, n)
		}
	}
}

func TestTableLowestFree(t *testing.T) {
	table := new(descriptor.Table[fd, file])

	for i := 0; i < 5; i++ {
		if k := table.Insert(file{}); k != fd(i) {
			t.Fatalf("wrong descriptor allocated: want=%d got=%d", i, k)
		}
	}

	table.Delete(1)
	table.Delete(3)

	if k := table.Insert(file{name: "a"}); k != 1 {
		t.Errorf("lowest free descriptor not reused: want=1 got=%d", k)
	}
	if k := table.Insert(file{name: "b"}); k != 3 {
		t.Errorf("lowest free descriptor not reused: want=3 got=%d", k)
	}
	if k := table.Insert(file{name: "c"}); k != 5 {
		t.Errorf("wrong descriptor appended: want=5 got=%d", k)
	}
}

func TestTableAssign(t *testing.T) {
	table := new(descriptor.Table[fd, file])

	if _, replaced := table.Assign(100, file{name: "x"}); replaced {
		t.Error("assign to empty slot reported a replacement")
	}
	prev, replaced := table.Assign(100, file{name: "y"})
	if !replaced || prev.name != "x" {
		t.Errorf("wrong replacement: replaced=%t prev=%q", replaced, prev.name)
	}
	if k := table.Insert(file{}); k != 0 {
		t.Errorf("insert after sparse assign: want=0 got=%d", k)
	}
	if table.Access(-1) != nil || table.Access(101) != nil {
		t.Error("out of range descriptors must not be accessible")
	}

	table.Reset()
	if n := table.Len(); n != 0 {
		t.Errorf("table not empty after reset: length=%d", n)
	}
	if _, ok := table.Lookup(100); ok {
		t.Error("value found after reset")
	}
}

func BenchmarkTableInsert(b *testing.B) {
	table := new(descriptor.Table[fd, *file])
	entry := new(file)

	for i := 0; i < b.N; i++ {
		table.Insert(entry)

		if (i % 65536) == 0 {
			table.Reset()
		}
	}
}

func BenchmarkTableLookup(b *testing.B) {
	const sentinel = "42"
	const numFiles = 65536
	table := new(descriptor.Table[fd, *file])
	files := make([]fd, numFiles)
	entry := file{name: sentinel}

	for i := range files {
		files[i] = table.Insert(&entry)
	}

	var f *file
	for i := 0; i < b.N; i++ {
		f, _ = table.Lookup(files[i%numFiles])
	}
	if f.name != sentinel {
		b.Error("wrong file returned by lookup")
	}
}
