package engine

// A minimal wasm assembler for test guests. Only the sections and opcodes
// the fake Wren shim needs are supported.

const (
	valI32 byte = 0x7f
	valI64 byte = 0x7e
	valF64 byte = 0x7c
)

const (
	opEnd       byte = 0x0b
	opCall      byte = 0x10
	opLocalGet  byte = 0x20
	opGlobalGet byte = 0x23
	opGlobalSet byte = 0x24
	opI32Const  byte = 0x41
	opF64Const  byte = 0x44
	opI32Ne     byte = 0x47
	opI32Add    byte = 0x6a
	opI32And    byte = 0x71
)

func uleb(n uint32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(n int32) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if (n == 0 && b&0x40 == 0) || (n == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func vec(items ...[]byte) []byte {
	out := uleb(uint32(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func section(id byte, content []byte) []byte {
	out := append([]byte{id}, uleb(uint32(len(content)))...)
	return append(out, content...)
}

func funcType(params, results []byte) []byte {
	out := append([]byte{0x60}, uleb(uint32(len(params)))...)
	out = append(out, params...)
	out = append(out, uleb(uint32(len(results)))...)
	return append(out, results...)
}

func body(code ...byte) []byte {
	fn := append([]byte{0x00}, code...) // no locals
	fn = append(fn, opEnd)
	return append(uleb(uint32(len(fn))), fn...)
}

func i32Const(n int32) []byte {
	return append([]byte{opI32Const}, sleb(n)...)
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// guestName is a NUL-terminated string placed in guest memory; fakeGuest
// treats a call handle as a pointer to the method it names.
const (
	guestNameAddr = 64
	guestName     = "Point"
)

// fakeGuest assembles a module with the shim's export surface:
//
//	malloc          bump allocator over a heap global
//	wrenInterpret   writes its source through the host write import
//	wrenHasModule   true when the host load_module import returns source
//	wrenMakeCallHandle  returns the address of guestName
//	wrenCall        binds the handle's name as a static method and calls it
//	wrenSet/GetSlotDouble  store one double in a global
//
// Without withVM the wrenitNewVM export is left out.
func fakeGuest(withVM bool) []byte {
	types := vec(
		funcType([]byte{valI32, valI32}, nil),                                    // 0 write
		funcType([]byte{valI32, valI32}, []byte{valI32}),                         // 1 load_module, hasModule, call
		funcType([]byte{valI32, valI32, valI32, valI32, valI32}, []byte{valI64}), // 2 bind_method
		funcType([]byte{valI32, valI64}, nil),                                    // 3 call_foreign
		funcType([]byte{valI32}, []byte{valI32}),                                 // 4 malloc
		funcType([]byte{valI32}, nil),                                            // 5 free, freeVM
		funcType(nil, []byte{valI32}),                                            // 6 version
		funcType([]byte{valI32, valI32, valI32}, []byte{valI32}),                 // 7 newVM, interpret
		funcType([]byte{valI32, valI32, valF64}, nil),                            // 8 setSlotDouble
		funcType([]byte{valI32, valI32}, []byte{valF64}),                         // 9 getSlotDouble
	)
	imports := vec(
		cat(name(hostModule), name(hostWrite), []byte{0x00, 0}),
		cat(name(hostModule), name(hostLoadModule), []byte{0x00, 1}),
		cat(name(hostModule), name(hostBindMethod), []byte{0x00, 2}),
		cat(name(hostModule), name(hostCallForeign), []byte{0x00, 3}),
	)

	type export struct {
		name string
		typ  byte
		code []byte
	}
	exports := []export{
		{exportMalloc, 4, cat(
			[]byte{opGlobalGet, 0},
			[]byte{opGlobalGet, 0, opLocalGet, 0, opI32Add},
			i32Const(7), []byte{opI32Add},
			i32Const(-8), []byte{opI32And},
			[]byte{opGlobalSet, 0},
		)},
		{exportFree, 5, nil},
		{exportVersion, 6, i32Const(4000)},
		{exportFreeVM, 5, nil},
		{"wrenInterpret", 7, cat(
			[]byte{opLocalGet, 0, opLocalGet, 2, opCall, 0},
			i32Const(0),
		)},
		{"wrenHasModule", 1, cat(
			[]byte{opLocalGet, 0, opLocalGet, 1, opCall, 1},
			i32Const(0), []byte{opI32Ne},
		)},
		{"wrenCall", 1, cat(
			[]byte{opLocalGet, 0},
			[]byte{opLocalGet, 0, opLocalGet, 1, opLocalGet, 1},
			i32Const(1),
			[]byte{opLocalGet, 1, opCall, 2},
			[]byte{opCall, 3},
			i32Const(0),
		)},
		{"wrenMakeCallHandle", 1, i32Const(guestNameAddr)},
		{"wrenReleaseHandle", 0, nil},
		{"wrenSetSlotDouble", 8, []byte{opLocalGet, 2, opGlobalSet, 1}},
		{"wrenGetSlotDouble", 9, []byte{opGlobalGet, 1}},
	}
	if withVM {
		exports = append(exports, export{exportNewVM, 7, i32Const(16)})
	}

	var funcs, codes, exps [][]byte
	const imported = 4
	for i, ex := range exports {
		funcs = append(funcs, []byte{ex.typ})
		codes = append(codes, body(ex.code...))
		exps = append(exps, cat(name(ex.name), []byte{0x00}, uleb(uint32(imported+i))))
	}
	exps = append(exps, cat(name(exportMemory), []byte{0x02, 0}))

	globals := vec(
		cat([]byte{valI32, 0x01}, i32Const(1024), []byte{opEnd}),
		cat([]byte{valF64, 0x01, opF64Const}, make([]byte, 8), []byte{opEnd}),
	)
	data := vec(cat(
		[]byte{0x00}, i32Const(guestNameAddr), []byte{opEnd},
		name(guestName+"\x00"),
	))

	return cat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, types),
		section(2, imports),
		section(3, vec(funcs...)),
		section(5, vec([]byte{0x00, 0x01})),
		section(6, globals),
		section(7, vec(exps...)),
		section(10, vec(codes...)),
		section(11, data),
	)
}
