package value

import "unicode/utf8"

// Value is a wire-encodable value: something that knows its own wire type
// tag and can read/write its body through a Reader/Writer. DynamicValue,
// *DynamicStruct and the primitive wrappers below implement it. Derived
// struct types do not: Derive (derive.go) returns a separate StructCodec
// whose methods take the struct as an argument.
type Value interface {
	// Ty reports this value's wire type tag.
	Ty() Ty
	// ReadFrom decodes this value's body (not its tag) from r.
	ReadFrom(r *Reader) error
	// WriteTo encodes this value's body (not its tag) to w.
	WriteTo(w *Writer)
}

// Marshal encodes v's body to a freshly allocated byte slice. There is no
// leading type tag - callers embedding v as a struct field write the tag
// themselves via Writer.WriteFieldHeader. A Struct-typed Value's own
// encoding is self-delimiting (terminated by Stop), so it can be stored
// as-is; the typed table facade does the same through StructCodec.Marshal.
func Marshal(v Value) []byte {
	w := NewWriter(128)
	v.WriteTo(w)
	return w.Bytes
}

// Unmarshal decodes slice's body into v.
func Unmarshal(slice []byte, v Value) error {
	r := NewReader(slice)
	return v.ReadFrom(r)
}

// Int64Value adapts int64 to the Value interface, for use as a List
// element type or in hand-written (non-derived) Value implementations.
type Int64Value int64

func (v Int64Value) Ty() Ty { return I64 }
func (v *Int64Value) ReadFrom(r *Reader) error {
	i, err := r.ReadI64()
	if err != nil {
		return err
	}
	*v = Int64Value(i)
	return nil
}
func (v Int64Value) WriteTo(w *Writer) { w.WriteI64(int64(v)) }

// Float64Value adapts float64 to the Value interface.
type Float64Value float64

func (v Float64Value) Ty() Ty { return F64 }
func (v *Float64Value) ReadFrom(r *Reader) error {
	f, err := r.ReadF64()
	if err != nil {
		return err
	}
	*v = Float64Value(f)
	return nil
}
func (v Float64Value) WriteTo(w *Writer) { w.WriteF64(float64(v)) }

// BytesValue adapts []byte to the Value interface.
type BytesValue []byte

func (v BytesValue) Ty() Ty { return Bytes }
func (v *BytesValue) ReadFrom(r *Reader) error {
	b, err := r.ReadBytes()
	if err != nil {
		return err
	}
	*v = append(BytesValue(nil), b...)
	return nil
}
func (v BytesValue) WriteTo(w *Writer) { w.WriteBytes(v) }

// StringValue adapts string to the Value interface, decoding its Bytes
// body as UTF-8.
type StringValue string

func (v StringValue) Ty() Ty { return Bytes }
func (v *StringValue) ReadFrom(r *Reader) error {
	b, err := r.ReadBytes()
	if err != nil {
		return err
	}
	if !utf8.Valid(b) {
		return ErrInvalidUTF8
	}
	*v = StringValue(b)
	return nil
}
func (v StringValue) WriteTo(w *Writer) { w.WriteBytes([]byte(v)) }

// ListOf adapts a homogeneous slice of Value-implementing elements to the
// Value interface, encoded as a list header (item type + count) followed
// by each element's body in sequence.
//
// T is the element's storage type (e.g. Int64Value); PT is a pointer to
// it, constrained to actually implement Value. Decoding elements needs a
// pointer receiver (ReadFrom mutates), so this takes both type parameters
// rather than requiring T itself to satisfy Value - the same
// pointer-to-T-implements-interface pattern encoding/json's
// json.Unmarshaler callers lean on for addressable targets.
type ListOf[T any, PT interface {
	*T
	Value
}] []T

func (v ListOf[T, PT]) Ty() Ty { return List }

func (v ListOf[T, PT]) itemTy() Ty {
	var zero T
	return PT(&zero).Ty()
}

func (v *ListOf[T, PT]) ReadFrom(r *Reader) error {
	// readers dispatch by their own zero value's Ty(); the wire item
	// type only matters to the dynamic, type-erased path.
	_, count, err := r.ReadListHeader()
	if err != nil {
		return err
	}
	items := make([]T, count)
	for i := uint32(0); i < count; i++ {
		if err := PT(&items[i]).ReadFrom(r); err != nil {
			return err
		}
	}
	*v = items
	return nil
}

func (v ListOf[T, PT]) WriteTo(w *Writer) {
	itemTy := v.itemTy()
	if len(v) == 0 {
		// A ListOf always has a concrete item type, so it writes that
		// type even when empty; it never writes Any.
		w.WriteListHeader(itemTy, 0)
		return
	}
	w.WriteListHeader(itemTy, uint32(len(v)))
	for i := range v {
		PT(&v[i]).WriteTo(w)
	}
}

// Optional adapts a nullable field to the Value interface. Absent values
// encode as the zero value of T - there's no wire-level presence bit, so
// absence and the zero value of T are indistinguishable on the wire.
// See ListOf for why both T and PT are needed.
type Optional[T any, PT interface {
	*T
	Value
}] struct {
	Value T
	Valid bool
}

func (o Optional[T, PT]) Ty() Ty { return PT(&o.Value).Ty() }
func (o *Optional[T, PT]) ReadFrom(r *Reader) error {
	if err := PT(&o.Value).ReadFrom(r); err != nil {
		return err
	}
	o.Valid = true
	return nil
}
func (o Optional[T, PT]) WriteTo(w *Writer) { PT(&o.Value).WriteTo(w) }
