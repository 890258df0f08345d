// Package key implements the order-preserving composite key codec: a Key
// is a sequence of typed Components (I64, F64, or Bytes), byte-stuffed so
// that lexicographic comparison of the encoded bytes matches comparison of
// the decoded components (negative I64 and negative or NaN F64 values
// excepted), making Key usable directly as a B-tree/SQL blob
// primary key or index key.
package key

// Ty tags a Component's wire type. Values are fixed to match the byte a
// Key's encoding leads each component with.
type Ty uint8

const (
	I64 Ty = 1
	F64 Ty = 2
	Bytes Ty = 3
)

// Component is one tagged part of a composite Key.
type Component struct {
	ty    Ty
	i64   int64
	f64   float64
	bytes []byte
}

// I64Component builds an I64 component.
func I64Component(v int64) Component { return Component{ty: I64, i64: v} }

// F64Component builds an F64 component.
func F64Component(v float64) Component { return Component{ty: F64, f64: v} }

// BytesComponent builds a Bytes component. val is not copied.
func BytesComponent(val []byte) Component { return Component{ty: Bytes, bytes: val} }

// Ty reports the component's wire type.
func (c Component) Ty() Ty { return c.ty }

// Int64 returns the component's I64 payload.
func (c Component) Int64() int64 { return c.i64 }

// Float64 returns the component's F64 payload.
func (c Component) Float64() float64 { return c.f64 }

// BytesValue returns the component's Bytes payload.
func (c Component) BytesValue() []byte { return c.bytes }

// Equal reports whether two components hold the same type and value.
func (c Component) Equal(o Component) bool {
	if c.ty != o.ty {
		return false
	}
	switch c.ty {
	case I64:
		return c.i64 == o.i64
	case F64:
		return c.f64 == o.f64
	case Bytes:
		return byteSliceEqual(c.bytes, o.bytes)
	}
	return false
}

// Compare orders two components: first by type (I64 < F64 < Bytes), then
// by value. F64 comparisons treat NaN as equal to itself rather than
// propagating an unordered comparison.
func (c Component) Compare(o Component) int {
	if c.ty != o.ty {
		if c.ty < o.ty {
			return -1
		}
		return 1
	}
	switch c.ty {
	case I64:
		switch {
		case c.i64 < o.i64:
			return -1
		case c.i64 > o.i64:
			return 1
		default:
			return 0
		}
	case F64:
		return compareF64(c.f64, o.f64)
	case Bytes:
		return compareBytes(c.bytes, o.bytes)
	}
	return 0
}

func compareF64(l, r float64) int {
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	case l == r:
		return 0
	default:
		// at least one of l, r is NaN: treat as equal rather than
		// propagating an unordered comparison.
		return 0
	}
}

func compareBytes(l, r []byte) int {
	n := len(l)
	if len(r) < n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		if l[i] != r[i] {
			if l[i] < r[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(l) < len(r):
		return -1
	case len(l) > len(r):
		return 1
	default:
		return 0
	}
}

func byteSliceEqual(l, r []byte) bool {
	return compareBytes(l, r) == 0
}
