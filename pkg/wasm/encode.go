package wasm

import (
	"bytes"
	"io"
)

// Section ids of the WebAssembly binary format.
const (
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionMemory   byte = 5
	SectionExport   byte = 7
	SectionCode     byte = 10
)

// Value types, descriptors and opcodes used by the backend.
const (
	ValueTypeI32 byte = 0x7F
	FuncTypeTag  byte = 0x60

	ExternalFunc   byte = 0x00
	ExternalMemory byte = 0x02

	LimitsMinMax byte = 0x01

	OpCall     byte = 0x10
	OpLocalGet byte = 0x20
	OpI32Const byte = 0x41
	OpI32Add   byte = 0x6A
	OpI32Sub   byte = 0x6B
	OpI32Mul   byte = 0x6C
	OpI32DivS  byte = 0x6D
	OpI32RemS  byte = 0x6F
	OpEnd      byte = 0x0B
)

var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6D}
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// AppendULEB128 appends v in unsigned LEB128 encoding.
func AppendULEB128(b []byte, v uint32) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// AppendSLEB128 appends v in signed LEB128 encoding.
func AppendSLEB128(b []byte, v int32) []byte {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

// AppendVector appends a length-prefixed byte vector.
func AppendVector(b, contents []byte) []byte {
	b = AppendULEB128(b, uint32(len(contents)))
	return append(b, contents...)
}

// AppendName appends a UTF-8 name.
func AppendName(b []byte, name string) []byte {
	return AppendVector(b, []byte(name))
}

// encoder accumulates a module and reports the first write error.
type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

// section writes id followed by the size-prefixed contents.
func (e *encoder) section(id byte, contents []byte) {
	var buf bytes.Buffer
	buf.WriteByte(id)
	buf.Write(AppendVector(nil, contents))
	e.write(buf.Bytes())
}
