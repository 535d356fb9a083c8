// Package wasmtest assembles minimal WebAssembly guests for host-side tests.
//
// A guest built by Guest imports host functions and re-exports each under the
// same name through a one-instruction trampoline, so the host sees a real guest
// module as the caller. It also exports "memory" and a bump "allocate".
package wasmtest

const (
	valI32 = 0x7f
	valI64 = 0x7e

	opLocalGet  = 0x20
	opGlobalGet = 0x23
	opGlobalSet = 0x24
	opCall      = 0x10
	opI32Const  = 0x41
	opI32Add    = 0x6a
	opEnd       = 0x0b
)

// HeapBase is the first address handed out by the guest allocator.
const HeapBase = 1024

// MemoryPages is the guest memory size in 64KiB pages.
const MemoryPages = 16

// Func is one imported host function.
type Func struct {
	Name string
	// NoResult marks (i64) -> () functions such as log_message.
	NoResult bool
}

// Call returns a Func with the (i64) -> i64 convention.
func Call(name string) Func {
	return Func{Name: name}
}

// Guest builds a module importing funcs from module.
func Guest(module string, funcs ...Func) []byte {
	const (
		typeCall = iota
		typeAlloc
		typeVoid
	)
	types := vec(
		funcType([]byte{valI64}, []byte{valI64}),
		funcType([]byte{valI32}, []byte{valI32}),
		funcType([]byte{valI64}, nil),
	)

	var imports, defs, exports, code [][]byte
	typeOf := func(f Func) byte {
		if f.NoResult {
			return typeVoid
		}
		return typeCall
	}

	for _, f := range funcs {
		imports = append(imports, concat(name(module), name(f.Name), []byte{0x00}, uleb(uint32(typeOf(f)))))
	}

	n := uint32(len(funcs))
	allocIdx := n
	defs = append(defs, uleb(typeAlloc))
	code = append(code, body(
		opGlobalGet, 0x00,
		opGlobalGet, 0x00,
		opLocalGet, 0x00,
		opI32Add,
		opGlobalSet, 0x00,
	))

	exports = append(exports,
		concat(name("memory"), []byte{0x02}, uleb(0)),
		concat(name("allocate"), []byte{0x00}, uleb(allocIdx)),
	)

	for i, f := range funcs {
		defs = append(defs, uleb(uint32(typeOf(f))))
		code = append(code, body(concat([]byte{opLocalGet, 0x00, opCall}, uleb(uint32(i)))...))
		exports = append(exports, concat(name(f.Name), []byte{0x00}, uleb(allocIdx+1+uint32(i))))
	}

	memory := vec(concat([]byte{0x00}, uleb(MemoryPages)))
	globals := vec(concat([]byte{valI32, 0x01, opI32Const}, sleb(HeapBase), []byte{opEnd}))

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, types)...)
	if len(imports) > 0 {
		out = append(out, section(2, vec(imports...))...)
	}
	out = append(out, section(3, vec(defs...))...)
	out = append(out, section(5, memory)...)
	out = append(out, section(6, globals)...)
	out = append(out, section(7, vec(exports...))...)
	out = append(out, section(10, vec(code...))...)
	return out
}

func funcType(params, results []byte) []byte {
	return concat([]byte{0x60}, uleb(uint32(len(params))), params, uleb(uint32(len(results))), results)
}

// body wraps instructions into a code entry with no locals.
func body(instrs ...byte) []byte {
	b := concat([]byte{0x00}, instrs, []byte{opEnd})
	return concat(uleb(uint32(len(b))), b)
}

func section(id byte, content []byte) []byte {
	return concat([]byte{id}, uleb(uint32(len(content))), content)
}

func vec(items ...[]byte) []byte {
	return concat(append([][]byte{uleb(uint32(len(items)))}, items...)...)
}

func name(s string) []byte {
	return concat(uleb(uint32(len(s))), []byte(s))
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if done {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
