package value

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"unicode/utf8"
)

// Derive builds a *StructCodec[T] via reflection over T's fields and their
// `vdb:"N"` tags, memoizing the field layout per type. Indices are uint8,
// must be unique within the struct, and need not be dense or ordered.
//
// Call Derive[T]() once per type and reuse the returned *StructCodec - it
// is safe for concurrent use, and rebuilding it per call would repeat the
// reflection work on every encode.
func Derive[T any]() *StructCodec[T] {
	var zero T
	rt := reflect.TypeOf(zero)
	if rt.Kind() != reflect.Struct {
		panic("value: Derive requires a struct type")
	}
	return &StructCodec[T]{fields: structFieldsFor(rt)}
}

// StructCodec encodes/decodes values of type T per the field layout
// discovered by Derive. T's own fields carry no methods - the codec does
// all the work.
type StructCodec[T any] struct {
	fields []structField
}

// Ty reports Struct, every derived type's wire type tag.
func (c *StructCodec[T]) Ty() Ty { return Struct }

// Marshal encodes v to a freshly allocated byte slice.
func (c *StructCodec[T]) Marshal(v *T) []byte {
	w := NewWriter(128)
	c.WriteTo(w, v)
	return w.Bytes
}

// Unmarshal decodes slice into v, which must be the zero value or
// otherwise ready to be overwritten field-by-field.
func (c *StructCodec[T]) Unmarshal(slice []byte, v *T) error {
	r := NewReader(slice)
	return c.ReadFrom(r, v)
}

// WriteTo writes v's declared fields, each prefixed by its (type, index)
// header, terminated by Stop. Field order on the wire follows declaration
// order, but that order is writer-meaningful only - readers dispatch by
// index, not position.
func (c *StructCodec[T]) WriteTo(w *Writer, v *T) {
	writeStructFields(c.fields, reflect.ValueOf(v).Elem(), w)
}

// ReadFrom reads fields into v until Stop, dispatching known indices to
// their typed decoder and skipping unknown ones, so older readers tolerate
// newer writers that have added fields.
func (c *StructCodec[T]) ReadFrom(r *Reader, v *T) error {
	return readStructFields(c.fields, reflect.ValueOf(v).Elem(), r)
}

// structField describes one declared, tagged field.
type structField struct {
	index  uint8
	path   []int // reflect.Value.FieldByIndex path; always one level, embedded structs' fields are not promoted
	wireTy Ty
	read   func(reflect.Value, *Reader) error
	write  func(reflect.Value, *Writer)
}

func fieldByPath(v reflect.Value, path []int) reflect.Value {
	return v.FieldByIndex(path)
}

// structFieldsCache memoizes the reflect work per struct type, keyed by
// reflect.Type, rather than recomputing field metadata on every call.
var structFieldsCache sync.Map // map[reflect.Type][]structField

func structFieldsFor(rt reflect.Type) []structField {
	if cached, ok := structFieldsCache.Load(rt); ok {
		return cached.([]structField)
	}

	var fields []structField
	seen := make(map[uint8]bool)

	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.PkgPath != "" {
			continue // unexported
		}
		tag, ok := sf.Tag.Lookup("vdb")
		if !ok {
			continue
		}
		idx, err := strconv.ParseUint(tag, 10, 8)
		if err != nil {
			panic(fmt.Sprintf("value: field %s has invalid vdb index tag %q: %v", sf.Name, tag, err))
		}
		index := uint8(idx)
		if seen[index] {
			panic(fmt.Sprintf("value: duplicate vdb index %d on %s", index, rt))
		}
		seen[index] = true

		field, err := buildStructField(sf.Type)
		if err != nil {
			panic(fmt.Sprintf("value: field %s: %v", sf.Name, err))
		}
		field.index = index
		field.path = []int{i}
		fields = append(fields, field)
	}

	structFieldsCache.Store(rt, fields)
	return fields
}

var (
	bytesType = reflect.TypeOf([]byte(nil))
)

// buildStructField builds the read/write closures for one field's Go
// type. Supported kinds are []byte/string (Bytes), the signed integer
// kinds widened to I64, the float kinds widened to F64, nested structs
// (Struct), and slices of any of the above (List).
func buildStructField(t reflect.Type) (structField, error) {
	switch {
	case t == bytesType:
		return structField{
			wireTy: Bytes,
			read: func(v reflect.Value, r *Reader) error {
				b, err := r.ReadBytes()
				if err != nil {
					return err
				}
				v.SetBytes(append([]byte(nil), b...))
				return nil
			},
			write: func(v reflect.Value, w *Writer) { w.WriteBytes(v.Bytes()) },
		}, nil

	case t.Kind() == reflect.String:
		return structField{
			wireTy: Bytes,
			read: func(v reflect.Value, r *Reader) error {
				b, err := r.ReadBytes()
				if err != nil {
					return err
				}
				if !utf8.Valid(b) {
					return ErrInvalidUTF8
				}
				v.SetString(string(b))
				return nil
			},
			write: func(v reflect.Value, w *Writer) { w.WriteBytes([]byte(v.String())) },
		}, nil

	case t.Kind() == reflect.Int64, t.Kind() == reflect.Int, t.Kind() == reflect.Int32,
		t.Kind() == reflect.Int16, t.Kind() == reflect.Int8:
		return structField{
			wireTy: I64,
			read: func(v reflect.Value, r *Reader) error {
				i, err := r.ReadI64()
				if err != nil {
					return err
				}
				v.SetInt(i)
				return nil
			},
			write: func(v reflect.Value, w *Writer) { w.WriteI64(v.Int()) },
		}, nil

	case t.Kind() == reflect.Float64, t.Kind() == reflect.Float32:
		return structField{
			wireTy: F64,
			read: func(v reflect.Value, r *Reader) error {
				f, err := r.ReadF64()
				if err != nil {
					return err
				}
				v.SetFloat(f)
				return nil
			},
			write: func(v reflect.Value, w *Writer) { w.WriteF64(v.Float()) },
		}, nil

	case t.Kind() == reflect.Struct:
		sub := structFieldsFor(t)
		return structField{
			wireTy: Struct,
			read: func(v reflect.Value, r *Reader) error {
				return readStructFields(sub, v, r)
			},
			write: func(v reflect.Value, w *Writer) { writeStructFields(sub, v, w) },
		}, nil

	case t.Kind() == reflect.Slice && t.Elem() != reflect.TypeOf(byte(0)):
		elemField, err := buildStructField(t.Elem())
		if err != nil {
			return structField{}, fmt.Errorf("list element: %w", err)
		}
		elemTy := elemField.wireTy
		return structField{
			wireTy: List,
			read: func(v reflect.Value, r *Reader) error {
				itemTy, count, err := r.ReadListHeader()
				if err != nil {
					return err
				}
				slice := reflect.MakeSlice(t, 0, int(count))
				_ = itemTy // wire item type only matters to the dynamic, type-erased path
				for i := uint32(0); i < count; i++ {
					elem := reflect.New(t.Elem()).Elem()
					if err := elemField.read(elem, r); err != nil {
						return err
					}
					slice = reflect.Append(slice, elem)
				}
				v.Set(slice)
				return nil
			},
			write: func(v reflect.Value, w *Writer) {
				n := v.Len()
				w.WriteListHeader(elemTy, uint32(n))
				for i := 0; i < n; i++ {
					elemField.write(v.Index(i), w)
				}
			},
		}, nil

	default:
		return structField{}, fmt.Errorf("unsupported field type %s", t)
	}
}

func readStructFields(fields []structField, v reflect.Value, r *Reader) error {
	byIndex := make(map[uint8]*structField, len(fields))
	for i := range fields {
		byIndex[fields[i].index] = &fields[i]
	}
	for {
		ty, index, ok, err := r.ReadNonStopField()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		f, known := byIndex[index]
		if !known {
			if err := r.SkipField(ty); err != nil {
				return err
			}
			continue
		}
		if err := f.read(fieldByPath(v, f.path), r); err != nil {
			return err
		}
	}
}

func writeStructFields(fields []structField, v reflect.Value, w *Writer) {
	for i := range fields {
		f := &fields[i]
		fv := fieldByPath(v, f.path)
		w.WriteFieldHeader(f.wireTy, f.index)
		f.write(fv, w)
	}
	w.WriteStop()
}
