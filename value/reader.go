package value

import (
	"encoding/binary"
	"fmt"
	"math"
)

// maxDecodeDepth bounds recursive decode of untrusted input (nested
// struct/list fields) to guard against stack exhaustion from malformed data.
const maxDecodeDepth = 64

// Reader reads framed wire values from a byte slice, cursor-style.
type Reader struct {
	store []byte
}

// NewReader wraps slice for decoding. The Reader does not copy slice.
func NewReader(slice []byte) *Reader {
	return &Reader{store: slice}
}

func (r *Reader) readN(n int) ([]byte, error) {
	if len(r.store) < n {
		return nil, ErrPrematureEnd
	}
	out := r.store[:n]
	r.store = r.store[n:]
	return out, nil
}

func (r *Reader) ReadI64() (int64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) ReadF64() (float64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadBytes reads a 4-byte big-endian length prefix and returns that many
// following bytes, a view into the Reader's backing slice.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	return r.readN(int(n))
}

// ReadFieldHeader reads a struct field's 2-byte (type, index) header.
func (r *Reader) ReadFieldHeader() (Ty, uint8, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, 0, err
	}
	ty, err := tyFromByte(b[0])
	if err != nil {
		return 0, 0, err
	}
	return ty, b[1], nil
}

// ReadListHeader reads a list's item-type tag and element count.
func (r *Reader) ReadListHeader() (Ty, uint32, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, 0, err
	}
	ty, err := tyFromByte(b[0])
	if err != nil {
		return 0, 0, err
	}
	count, err := r.ReadU32()
	if err != nil {
		return 0, 0, err
	}
	return ty, count, nil
}

// ReadNonStopField reads one field header, returning ok=false once the
// struct terminator (Stop) is reached.
func (r *Reader) ReadNonStopField() (ty Ty, index uint8, ok bool, err error) {
	ty, index, err = r.ReadFieldHeader()
	if err != nil {
		return 0, 0, false, err
	}
	if ty == Stop {
		return 0, 0, false, nil
	}
	return ty, index, true, nil
}

// SkipField consumes exactly one value of the given wire type without
// decoding it into anything, recursing into nested List/Struct bodies.
// This is what lets a typed struct decoder forward-compatibly ignore
// fields it doesn't know about.
func (r *Reader) SkipField(ty Ty) error {
	return r.skipField(ty, 0)
}

func (r *Reader) skipField(ty Ty, depth int) error {
	if depth > maxDecodeDepth {
		return ErrDepthExceeded
	}

	switch ty {
	case Any, Stop:
		// Any is only meaningful as an empty list's item type; Stop is
		// already consumed by ReadNonStopField.
		return nil
	case I64, F64:
		_, err := r.readN(8)
		return err
	case Bytes:
		_, err := r.ReadBytes()
		return err
	case List:
		itemTy, count, err := r.ReadListHeader()
		if err != nil {
			return err
		}
		for i := uint32(0); i < count; i++ {
			if err := r.skipField(itemTy, depth+1); err != nil {
				return err
			}
		}
		return nil
	case Struct:
		for {
			fieldTy, _, ok, err := r.ReadNonStopField()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if err := r.skipField(fieldTy, depth+1); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %v", ErrInvalidType, ty)
	}
}
