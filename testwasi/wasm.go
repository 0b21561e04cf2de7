package testwasi

// Value types of the WebAssembly binary format.
const (
	I32 byte = 0x7f
	I64 byte = 0x7e
)

// Import is a host function imported by a Program.
type Import struct {
	Module  string
	Name    string
	Params  []byte
	Results []byte
}

// Segment is an active data segment copied to memory at instantiation.
type Segment struct {
	Offset int32
	Bytes  []byte
}

// Program is a minimal WebAssembly module: a list of imported functions, one
// page of exported memory, data segments, and an exported _start function
// whose body is Code.
//
// Imported functions are numbered in declaration order, so Code refers to
// the first import as Call(0).
type Program struct {
	Imports []Import
	Data    []Segment
	Code    []byte
}

// Bytes assembles the program into the WebAssembly binary format.
func (p *Program) Bytes() []byte {
	start := uint64(len(p.Imports))

	var types, imports []byte
	types = appendULEB(types, start+1)
	imports = appendULEB(imports, start)
	for i, imp := range p.Imports {
		types = appendFuncType(types, imp.Params, imp.Results)
		imports = appendName(imports, imp.Module)
		imports = appendName(imports, imp.Name)
		imports = append(imports, 0x00)
		imports = appendULEB(imports, uint64(i))
	}
	types = appendFuncType(types, nil, nil)

	functions := appendULEB([]byte{1}, start)
	memories := []byte{1, 0x00, 1}

	exports := []byte{2}
	exports = appendName(exports, "_start")
	exports = append(exports, 0x00)
	exports = appendULEB(exports, start)
	exports = appendName(exports, "memory")
	exports = append(exports, 0x02, 0)

	body := append([]byte{0}, p.Code...)
	body = append(body, opEnd)
	code := appendULEB([]byte{1}, uint64(len(body)))
	code = append(code, body...)

	data := appendULEB(nil, uint64(len(p.Data)))
	for _, seg := range p.Data {
		data = append(data, 0x00)
		data = append(data, I32Const(seg.Offset)...)
		data = append(data, opEnd)
		data = appendULEB(data, uint64(len(seg.Bytes)))
		data = append(data, seg.Bytes...)
	}

	b := []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}
	b = appendSection(b, 1, types)
	b = appendSection(b, 2, imports)
	b = appendSection(b, 3, functions)
	b = appendSection(b, 5, memories)
	b = appendSection(b, 7, exports)
	b = appendSection(b, 10, code)
	b = appendSection(b, 11, data)
	return b
}

const (
	opEnd      = 0x0b
	opCall     = 0x10
	opDrop     = 0x1a
	opI32Load  = 0x28
	opI32Store = 0x36
	opI32Const = 0x41
)

// Instructions used to write the body of _start.

func I32Const(v int32) []byte { return appendSLEB([]byte{opI32Const}, int64(v)) }

func Call(index uint32) []byte { return appendULEB([]byte{opCall}, uint64(index)) }

func Drop() []byte { return []byte{opDrop} }

func I32Load() []byte { return []byte{opI32Load, 2, 0} }

func I32Store() []byte { return []byte{opI32Store, 2, 0} }

// Code concatenates instructions.
func Code(instrs ...[]byte) []byte {
	var b []byte
	for _, instr := range instrs {
		b = append(b, instr...)
	}
	return b
}

func appendSection(b []byte, id byte, content []byte) []byte {
	b = append(b, id)
	b = appendULEB(b, uint64(len(content)))
	return append(b, content...)
}

func appendFuncType(b []byte, params, results []byte) []byte {
	b = append(b, 0x60)
	b = appendULEB(b, uint64(len(params)))
	b = append(b, params...)
	b = appendULEB(b, uint64(len(results)))
	return append(b, results...)
}

func appendName(b []byte, name string) []byte {
	b = appendULEB(b, uint64(len(name)))
	return append(b, name...)
}

func appendULEB(b []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func appendSLEB(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}
