package encoding

import (
	"errors"
	"testing"
)

type sample struct {
	Name   string
	Count  uint64
	Delta  int64
	Ratio  float32
	Money  float64
	Active bool
	Items  []item
	Layer  []uint8
}

type item struct {
	X, Y uint64
}

func (s sample) encode() []byte {
	w := NewWriter()
	w.String(1, s.Name)
	w.Uint(2, s.Count)
	w.Int(3, s.Delta)
	w.Float32(4, s.Ratio)
	w.Float64(5, s.Money)
	w.Bool(6, s.Active)
	for _, it := range s.Items {
		w.Message(7, func(w *Writer) {
			w.Uint(1, it.X)
			w.Uint(2, it.Y)
		})
	}
	w.U8Layer(8, s.Layer)
	return w.Finish()
}

func decodeSample(b []byte, layerLen int) (sample, error) {
	var s sample
	s.Layer = make([]uint8, layerLen)
	r := NewReader(b)
	for r.Next() {
		switch r.Field() {
		case 1:
			s.Name = r.String()
		case 2:
			s.Count = r.Uint()
		case 3:
			s.Delta = r.Int()
		case 4:
			s.Ratio = r.Float32()
		case 5:
			s.Money = r.Float64()
		case 6:
			s.Active = r.Bool()
		case 7:
			var it item
			r.Message(func(r *Reader) {
				for r.Next() {
					switch r.Field() {
					case 1:
						it.X = r.Uint()
					case 2:
						it.Y = r.Uint()
					default:
						r.Skip()
					}
				}
			})
			s.Items = append(s.Items, it)
		case 8:
			r.U8Layer(s.Layer)
		default:
			r.Skip()
		}
	}
	return s, r.Err()
}

func TestWire_RoundTripWithNestedRecords(t *testing.T) {
	in := sample{
		Name:   "Harbor",
		Count:  3,
		Delta:  -17,
		Ratio:  0.25,
		Money:  -1234.5,
		Active: true,
		Items:  []item{{1, 2}, {0, 0}, {5, 9}},
		Layer:  []uint8{0, 0, 3, 3, 3, 1},
	}
	out, err := decodeSample(in.encode(), len(in.Layer))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Name != in.Name || out.Count != in.Count || out.Delta != in.Delta || out.Ratio != in.Ratio || out.Money != in.Money || !out.Active {
		t.Fatalf("scalar mismatch: %+v", out)
	}
	if len(out.Items) != 3 || out.Items[1] != (item{}) || out.Items[2] != (item{5, 9}) {
		t.Fatalf("items mismatch: %+v", out.Items)
	}
	for i := range in.Layer {
		if out.Layer[i] != in.Layer[i] {
			t.Fatalf("layer mismatch at %d", i)
		}
	}
}

func TestWire_ZeroValueIsEmpty(t *testing.T) {
	w := NewWriter()
	w.Uint(1, 0)
	w.Float64(2, 0)
	w.String(3, "")
	w.Bool(4, false)
	if len(w.Finish()) != 0 {
		t.Fatalf("zero scalars must not be written")
	}
}

func TestWire_UnknownFieldsSkipped(t *testing.T) {
	w := NewWriter()
	w.String(99, "from a newer build")
	w.Uint(2, 11)
	w.Float32s(98, []float32{1, 2, 3})
	out, err := decodeSample(w.Finish(), 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 11 {
		t.Fatalf("count: got %d", out.Count)
	}
}

func TestWire_TypeMismatch(t *testing.T) {
	w := NewWriter()
	w.String(2, "not a varint")
	_, err := decodeSample(w.Finish(), 0)
	if !errors.Is(err, ErrWireType) {
		t.Fatalf("expected ErrWireType, got %v", err)
	}
}

func TestWire_PackedSlices(t *testing.T) {
	w := NewWriter()
	w.Float32s(1, []float32{0.5, -2, 0})
	w.Uints(2, []uint64{0, 300, 7})
	r := NewReader(w.Finish())
	var fs []float32
	var us []uint64
	for r.Next() {
		switch r.Field() {
		case 1:
			fs = r.Float32s()
		case 2:
			us = r.Uints()
		}
	}
	if r.Err() != nil {
		t.Fatalf("decode: %v", r.Err())
	}
	if len(fs) != 3 || fs[1] != -2 || len(us) != 3 || us[1] != 300 {
		t.Fatalf("unexpected packed values: %v %v", fs, us)
	}
}
