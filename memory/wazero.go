package memory

import "github.com/tetratelabs/wazero/api"

// Wazero is a Backend over the memory of a module instantiated by wazero.
type Wazero struct {
	mem api.Memory
	max uint32
}

// NewWazero wraps mem. maxPages bounds the growth performed through the
// backend, wazero additionally enforces the limit declared by the module.
func NewWazero(mem api.Memory, maxPages uint32) *Wazero {
	if maxPages == 0 || maxPages > MaxPages {
		maxPages = MaxPages
	}
	return &Wazero{mem: mem, max: maxPages}
}

func (w *Wazero) Bytes() []byte {
	b, _ := w.mem.Read(0, w.mem.Size())
	return b
}

func (w *Wazero) Pages() uint32 { return w.mem.Size() / PageSize }

func (w *Wazero) MaxPages() uint32 { return w.max }

func (w *Wazero) Grow(delta uint32) (uint32, bool) {
	return w.mem.Grow(delta)
}
