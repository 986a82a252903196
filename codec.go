// codec.go
//
// Binary module format. Fields in fixed order, all integers little-endian:
// module name (u32 length + UTF-8 bytes); string pool; integer pool; float
// pool; function table entries {name, begin u32, length u32, variadic u8};
// initializer encoded as u32 0 (none) or 1+idx; instruction vector of
// {opcode u16, operand1 i16, operand2 i16}. There is no on-disk magic.
package m2v

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// EncodeModule serializes m into its binary wire form.
func EncodeModule(m *ExecutionModule) []byte {
	var b bytes.Buffer
	writeString(&b, m.Name)

	writeU32(&b, uint32(len(m.Strings)))
	for _, s := range m.Strings {
		writeString(&b, s)
	}
	writeU32(&b, uint32(len(m.Integers)))
	for _, v := range m.Integers {
		writeU64(&b, uint64(v))
	}
	writeU32(&b, uint32(len(m.Floats)))
	for _, v := range m.Floats {
		writeU64(&b, math.Float64bits(v))
	}

	writeU32(&b, uint32(len(m.Functions)))
	for _, f := range m.Functions {
		writeString(&b, f.Name)
		writeU32(&b, uint32(f.Begin))
		writeU32(&b, uint32(f.Length))
		if f.Variadic {
			b.WriteByte(1)
		} else {
			b.WriteByte(0)
		}
	}

	if m.Initializer < 0 {
		writeU32(&b, 0)
	} else {
		writeU32(&b, uint32(1+m.Initializer))
	}

	writeU32(&b, uint32(len(m.Code)))
	for _, in := range m.Code {
		writeU16(&b, uint16(in.Op))
		writeU16(&b, uint16(in.A))
		writeU16(&b, uint16(in.B))
	}
	return b.Bytes()
}

// DecodeModule parses the binary wire form produced by EncodeModule.
func DecodeModule(data []byte) (*ExecutionModule, error) {
	r := &reader{buf: data}
	m := NewExecutionModule(r.str())

	n := r.u32()
	m.Strings = make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		m.Strings = append(m.Strings, r.str())
	}
	n = r.u32()
	m.Integers = make([]int64, 0, n)
	for i := uint32(0); i < n; i++ {
		m.Integers = append(m.Integers, int64(r.u64()))
	}
	n = r.u32()
	m.Floats = make([]float64, 0, n)
	for i := uint32(0); i < n; i++ {
		m.Floats = append(m.Floats, math.Float64frombits(r.u64()))
	}

	n = r.u32()
	m.Functions = make([]FunctionSpec, 0, n)
	for i := uint32(0); i < n; i++ {
		f := FunctionSpec{Name: r.str(), Begin: int(r.u32()), Length: int(r.u32())}
		f.Variadic = r.u8() != 0
		m.Functions = append(m.Functions, f)
	}

	init := r.u32()
	if init == 0 {
		m.Initializer = -1
	} else {
		m.Initializer = int(init - 1)
	}

	n = r.u32()
	m.Code = make([]Instruction, 0, n)
	for i := uint32(0); i < n; i++ {
		op := Opcode(r.u16())
		a := int16(r.u16())
		b := int16(r.u16())
		if !op.Valid() {
			return nil, fmt.Errorf("module %q: invalid opcode %d at instruction %d", m.Name, op, i)
		}
		m.Code = append(m.Code, Instruction{Op: op, A: a, B: b})
	}

	if r.err != nil {
		return nil, fmt.Errorf("module decode: %w", r.err)
	}
	if m.Initializer >= len(m.Functions) {
		return nil, fmt.Errorf("module %q: initializer index %d out of range", m.Name, m.Initializer)
	}
	for _, f := range m.Functions {
		if f.Begin < 0 || f.Length < 0 || f.Begin+f.Length > len(m.Code) {
			return nil, fmt.Errorf("module %q: function %q code range out of bounds", m.Name, f.Name)
		}
	}
	return m, nil
}

// ---- little helpers --------------------------------------------------------

func writeU16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}

func writeU32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}

func writeU64(b *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.Write(tmp[:])
}

func writeString(b *bytes.Buffer, s string) {
	writeU32(b, uint32(len(s)))
	b.WriteString(s)
}

type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) str() string {
	n := r.u32()
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}
