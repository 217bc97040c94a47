package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers are stable within a blob; never reuse a retired number.
type Field = protowire.Number

// Writer appends tagged fields. Scalar zero values are omitted so that the
// payload of a default resource is empty and readers fall back to zero.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Finish() []byte { return w.buf }

func (w *Writer) Uint(num Field, v uint64) {
	if v == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, v)
}

func (w *Writer) Int(num Field, v int64) {
	if v == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.VarintType)
	w.buf = protowire.AppendVarint(w.buf, protowire.EncodeZigZag(v))
}

func (w *Writer) Bool(num Field, v bool) {
	if !v {
		return
	}
	w.Uint(num, 1)
}

func (w *Writer) Float32(num Field, v float32) {
	bits := math.Float32bits(v)
	if bits == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.Fixed32Type)
	w.buf = protowire.AppendFixed32(w.buf, bits)
}

func (w *Writer) Float64(num Field, v float64) {
	bits := math.Float64bits(v)
	if bits == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.Fixed64Type)
	w.buf = protowire.AppendFixed64(w.buf, bits)
}

func (w *Writer) String(num Field, s string) {
	if s == "" {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendString(w.buf, s)
}

func (w *Writer) Bytes(num Field, b []byte) {
	if len(b) == 0 {
		return
	}
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, b)
}

// Message writes a nested record. It is always emitted, even when empty, so
// repeated records keep their count.
func (w *Writer) Message(num Field, fn func(*Writer)) {
	sub := Writer{}
	fn(&sub)
	w.buf = protowire.AppendTag(w.buf, num, protowire.BytesType)
	w.buf = protowire.AppendBytes(w.buf, sub.buf)
}

// Float32s packs a float slice as little-endian fixed32 values.
func (w *Writer) Float32s(num Field, vs []float32) {
	if len(vs) == 0 {
		return
	}
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	w.Bytes(num, b)
}

func (w *Writer) Float64s(num Field, vs []float64) {
	if len(vs) == 0 {
		return
	}
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(v))
	}
	w.Bytes(num, b)
}

// Uints packs a varint slice.
func (w *Writer) Uints(num Field, vs []uint64) {
	if len(vs) == 0 {
		return
	}
	var b []byte
	for _, v := range vs {
		b = protowire.AppendVarint(b, v)
	}
	w.Bytes(num, b)
}

var ErrWireType = errors.New("wire type mismatch")

// Reader walks the fields of a blob. Callers loop on Next and switch on Field;
// unknown fields must be passed to Skip.
type Reader struct {
	b   []byte
	num Field
	typ protowire.Type
	err error
}

func NewReader(b []byte) *Reader { return &Reader{b: b} }

func (r *Reader) Next() bool {
	if r.err != nil || len(r.b) == 0 {
		return false
	}
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		r.err = protowire.ParseError(n)
		return false
	}
	r.b = r.b[n:]
	r.num, r.typ = num, typ
	return true
}

func (r *Reader) Field() Field { return r.num }

func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(want protowire.Type) bool {
	if r.typ == want {
		return false
	}
	r.err = fmt.Errorf("field %d: %w (got %d want %d)", r.num, ErrWireType, r.typ, want)
	return true
}

func (r *Reader) Skip() {
	if r.err != nil {
		return
	}
	n := protowire.ConsumeFieldValue(r.num, r.typ, r.b)
	if n < 0 {
		r.err = protowire.ParseError(n)
		return
	}
	r.b = r.b[n:]
}

func (r *Reader) Uint() uint64 {
	if r.err != nil || r.fail(protowire.VarintType) {
		return 0
	}
	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		r.err = protowire.ParseError(n)
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *Reader) Int() int64 { return protowire.DecodeZigZag(r.Uint()) }

func (r *Reader) Bool() bool { return r.Uint() != 0 }

func (r *Reader) Float32() float32 {
	if r.err != nil || r.fail(protowire.Fixed32Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed32(r.b)
	if n < 0 {
		r.err = protowire.ParseError(n)
		return 0
	}
	r.b = r.b[n:]
	return math.Float32frombits(v)
}

func (r *Reader) Float64() float64 {
	if r.err != nil || r.fail(protowire.Fixed64Type) {
		return 0
	}
	v, n := protowire.ConsumeFixed64(r.b)
	if n < 0 {
		r.err = protowire.ParseError(n)
		return 0
	}
	r.b = r.b[n:]
	return math.Float64frombits(v)
}

func (r *Reader) Bytes() []byte {
	if r.err != nil || r.fail(protowire.BytesType) {
		return nil
	}
	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		r.err = protowire.ParseError(n)
		return nil
	}
	r.b = r.b[n:]
	return v
}

func (r *Reader) String() string { return string(r.Bytes()) }

// Message hands a reader over a nested record to fn; errors propagate to r.
func (r *Reader) Message(fn func(*Reader)) {
	b := r.Bytes()
	if r.err != nil {
		return
	}
	sub := NewReader(b)
	fn(sub)
	if sub.err != nil {
		r.err = sub.err
	}
}

func (r *Reader) Float32s() []float32 {
	b := r.Bytes()
	if r.err != nil {
		return nil
	}
	if len(b)%4 != 0 {
		r.err = fmt.Errorf("field %d: packed float32 length %d", r.num, len(b))
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

func (r *Reader) Float64s() []float64 {
	b := r.Bytes()
	if r.err != nil {
		return nil
	}
	if len(b)%8 != 0 {
		r.err = fmt.Errorf("field %d: packed float64 length %d", r.num, len(b))
		return nil
	}
	out := make([]float64, len(b)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out
}

func (r *Reader) Uints() []uint64 {
	b := r.Bytes()
	if r.err != nil {
		return nil
	}
	var out []uint64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			r.err = protowire.ParseError(n)
			return nil
		}
		out = append(out, v)
		b = b[n:]
	}
	return out
}

// U8Layer writes a byte layer run-length encoded.
func (w *Writer) U8Layer(num Field, cells []uint8) {
	w.Bytes(num, EncodeRLE(cells))
}

// U8Layer decodes a layer written by Writer.U8Layer into dst.
func (r *Reader) U8Layer(dst []uint8) {
	b := r.Bytes()
	if r.err != nil {
		return
	}
	cells, err := DecodeRLE(b, len(dst))
	if err != nil {
		r.err = fmt.Errorf("field %d: %w", r.num, err)
		return
	}
	copy(dst, cells)
}
