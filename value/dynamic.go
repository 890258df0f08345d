package value

import "sort"

// DynamicValue is a type-erased wire value, used when the schema isn't
// known statically. It round-trips every field it sees, including fields
// a typed struct decoder would have skipped.
type DynamicValue struct {
	ty     Ty
	i64    int64
	f64    float64
	bytes  []byte
	strct  *DynamicStruct
	itemTy Ty
	items  []DynamicValue
}

// NewDynamicI64 builds a DynamicValue holding an I64.
func NewDynamicI64(v int64) DynamicValue { return DynamicValue{ty: I64, i64: v} }

// NewDynamicF64 builds a DynamicValue holding an F64.
func NewDynamicF64(v float64) DynamicValue { return DynamicValue{ty: F64, f64: v} }

// NewDynamicBytes builds a DynamicValue holding Bytes.
func NewDynamicBytes(v []byte) DynamicValue { return DynamicValue{ty: Bytes, bytes: v} }

// NewDynamicStruct builds a DynamicValue wrapping s.
func NewDynamicStruct(s *DynamicStruct) DynamicValue { return DynamicValue{ty: Struct, strct: s} }

// NewDynamicList builds a DynamicValue holding a list of items, all
// sharing itemTy. An empty list may use Any for itemTy, the only legal use
// of Any on the wire.
func NewDynamicList(itemTy Ty, items []DynamicValue) DynamicValue {
	return DynamicValue{ty: List, itemTy: itemTy, items: items}
}

func defaultForTy(ty Ty) DynamicValue {
	switch ty {
	case I64:
		return DynamicValue{ty: I64}
	case F64:
		return DynamicValue{ty: F64}
	case Bytes:
		return DynamicValue{ty: Bytes, bytes: []byte{}}
	case List:
		return DynamicValue{ty: List, itemTy: Any}
	case Struct:
		return DynamicValue{ty: Struct, strct: NewDynamicStruct2()}
	case Stop:
		return DynamicValue{ty: Stop}
	default:
		panic("value: no default for Any ty")
	}
}

// Ty reports v's wire type tag.
func (v *DynamicValue) Ty() Ty { return v.ty }

// Int64 returns v's I64 payload.
func (v *DynamicValue) Int64() int64 { return v.i64 }

// Float64 returns v's F64 payload.
func (v *DynamicValue) Float64() float64 { return v.f64 }

// BytesValue returns v's Bytes payload.
func (v *DynamicValue) BytesValue() []byte { return v.bytes }

// Struct returns v's Struct payload, or nil if v isn't a Struct.
func (v *DynamicValue) Struct() *DynamicStruct { return v.strct }

// ListItemTy and Items return a List value's element type tag and items.
func (v *DynamicValue) ListItemTy() Ty { return v.itemTy }
func (v *DynamicValue) Items() []DynamicValue { return v.items }

// ReadFrom implements Value for DynamicValue, dispatching on the ty this
// value was constructed or previously decoded with.
func (v *DynamicValue) ReadFrom(r *Reader) error { return v.readFrom(r, 0) }

// WriteTo implements Value for DynamicValue.
func (v *DynamicValue) WriteTo(w *Writer) { v.writeTo(w) }

func (v *DynamicValue) readFrom(r *Reader, depth int) error {
	if depth > maxDecodeDepth {
		return ErrDepthExceeded
	}
	switch v.ty {
	case I64:
		i, err := r.ReadI64()
		if err != nil {
			return err
		}
		v.i64 = i
	case F64:
		f, err := r.ReadF64()
		if err != nil {
			return err
		}
		v.f64 = f
	case Bytes:
		b, err := r.ReadBytes()
		if err != nil {
			return err
		}
		v.bytes = append([]byte(nil), b...)
	case Struct:
		s := NewDynamicStruct2()
		if err := s.readFrom(r, depth+1); err != nil {
			return err
		}
		v.strct = s
	case List:
		itemTy, count, err := r.ReadListHeader()
		if err != nil {
			return err
		}
		items := make([]DynamicValue, 0, count)
		for i := uint32(0); i < count; i++ {
			item := defaultForTy(itemTy)
			if err := item.readFrom(r, depth+1); err != nil {
				return err
			}
			items = append(items, item)
		}
		v.itemTy = itemTy
		v.items = items
	case Stop:
		// nothing to read
	}
	return nil
}

func (v *DynamicValue) writeTo(w *Writer) {
	switch v.ty {
	case I64:
		w.WriteI64(v.i64)
	case F64:
		w.WriteF64(v.f64)
	case Bytes:
		w.WriteBytes(v.bytes)
	case Struct:
		v.strct.writeTo(w)
	case List:
		w.WriteListHeader(v.itemTy, uint32(len(v.items)))
		for i := range v.items {
			v.items[i].writeTo(w)
		}
	case Stop:
		// nothing to write
	}
}

// DynamicStruct is an ordered-by-index mapping from uint8 field index to
// DynamicValue. Duplicate indices are not produced by this decoder: on
// decode, a later occurrence of the same index overwrites the earlier one.
type DynamicStruct struct {
	order  []uint8
	fields map[uint8]DynamicValue
}

// NewDynamicStruct2 returns an empty DynamicStruct. (Named to avoid
// colliding with the NewDynamicStruct constructor above, which wraps an
// existing *DynamicStruct into a DynamicValue.)
func NewDynamicStruct2() *DynamicStruct {
	return &DynamicStruct{fields: make(map[uint8]DynamicValue)}
}

// Insert sets the value at index, returning the value it replaced, if any.
func (s *DynamicStruct) Insert(index uint8, v DynamicValue) (prev DynamicValue, hadPrev bool) {
	prev, hadPrev = s.fields[index]
	if !hadPrev {
		s.order = append(s.order, index)
	}
	s.fields[index] = v
	return prev, hadPrev
}

// Get looks up the value at index.
func (s *DynamicStruct) Get(index uint8) (DynamicValue, bool) {
	v, ok := s.fields[index]
	return v, ok
}

// Indices returns the field indices present, in ascending order.
func (s *DynamicStruct) Indices() []uint8 {
	out := append([]uint8(nil), s.order...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *DynamicStruct) readFrom(r *Reader, depth int) error {
	if depth > maxDecodeDepth {
		return ErrDepthExceeded
	}
	for {
		ty, index, ok, err := r.ReadNonStopField()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		val := defaultForTy(ty)
		if err := val.readFrom(r, depth+1); err != nil {
			return err
		}
		s.Insert(index, val)
	}
}

func (s *DynamicStruct) writeTo(w *Writer) {
	// Emit in ascending index order: a stable, deterministic choice
	// among the valid orderings, rather than insertion order.
	for _, index := range s.Indices() {
		v := s.fields[index]
		w.WriteFieldHeader(v.ty, index)
		v.writeTo(w)
	}
	w.WriteStop()
}

// Ty reports Struct, DynamicStruct's wire type.
func (s *DynamicStruct) Ty() Ty { return Struct }

// ReadFrom implements Value for *DynamicStruct.
func (s *DynamicStruct) ReadFrom(r *Reader) error {
	s.fields = make(map[uint8]DynamicValue)
	s.order = nil
	return s.readFrom(r, 0)
}

// WriteTo implements Value for *DynamicStruct.
func (s *DynamicStruct) WriteTo(w *Writer) { s.writeTo(w) }
