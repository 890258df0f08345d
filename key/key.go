package key

import (
	"encoding/binary"
	"fmt"
	"math"
)

// byteSeparator terminates a Bytes component; occurrences of it inside the
// payload are doubled (byte-stuffed) so the terminator stays unambiguous.
const byteSeparator = 0x00

// Key is an order-preserving composite key: a sequence of Components
// encoded so that comparing the encoded bytes lexicographically gives the
// same order as comparing the decoded Components, except for negative I64
// values and negative or NaN F64 values (see AppendI64). This lets Key be used
// directly as a primary key or secondary index key in a byte-ordered
// store (e.g. a SQL blob column with a btree index).
type Key struct {
	storage []byte
}

// New returns an empty Key.
func New() Key { return Key{} }

// WithCapacity returns an empty Key with cap bytes pre-reserved.
func WithCapacity(cap int) Key {
	return Key{storage: make([]byte, 0, cap)}
}

// FromComponents builds a Key by appending each component in order.
func FromComponents(components []Component) Key {
	cap := 0
	for _, c := range components {
		cap += byteLenHint(c)
	}
	k := WithCapacity(cap)
	for _, c := range components {
		k.AppendComponent(c)
	}
	return k
}

// FromI64 builds a single-component I64 key, a common case for primary
// keys derived from an autoincrement rowid.
func FromI64(v int64) Key {
	k := WithCapacity(9)
	k.AppendI64(v)
	return k
}

func byteLenHint(c Component) int {
	switch c.ty {
	case I64, F64:
		return 9
	case Bytes:
		return 1 + len(c.bytes) + 1
	}
	return 0
}

// Bytes returns the encoded key bytes. The returned slice aliases the
// Key's storage; callers must not mutate it.
func (k Key) Bytes() []byte { return k.storage }

// FromBytes wraps previously encoded bytes as a Key without validating
// them. Use this to reconstruct a Key read back from storage.
func FromBytes(b []byte) Key { return Key{storage: b} }

// AppendI64 appends an I64 component as raw big-endian two's complement,
// so byte order matches numeric order only among non-negative values: a
// negative value encodes greater than any non-negative one.
func (k *Key) AppendI64(val int64) {
	k.storage = append(k.storage, byte(I64))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(val))
	k.storage = append(k.storage, buf[:]...)
}

// AppendF64 appends an F64 component as its raw big-endian IEEE 754 bits,
// so byte order matches numeric order only among non-negative, non-NaN
// values.
func (k *Key) AppendF64(val float64) {
	k.storage = append(k.storage, byte(F64))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(val))
	k.storage = append(k.storage, buf[:]...)
}

// AppendBytes appends a Bytes component, byte-stuffing val so the
// terminator stays unambiguous.
func (k *Key) AppendBytes(val []byte) {
	k.storage = append(k.storage, byte(Bytes))
	k.storage = escapeBytes(k.storage, val)
}

// AppendComponent appends a single component, dispatching on its type.
func (k *Key) AppendComponent(c Component) {
	switch c.ty {
	case I64:
		k.AppendI64(c.i64)
	case F64:
		k.AppendF64(c.f64)
	case Bytes:
		k.AppendBytes(c.bytes)
	}
}

// AsComponents decodes the key back into its components. It panics if the
// stored bytes aren't a well-formed key - callers only ever pass Key
// bytes this package produced, so a malformed key means caller-supplied
// storage is corrupt, not a recoverable input error.
func (k Key) AsComponents() []Component {
	var components []Component
	current := k.storage
	for len(current) > 0 {
		ty := Ty(current[0])
		current = current[1:]
		switch ty {
		case I64:
			if len(current) < 8 {
				panic("key: truncated i64 component")
			}
			v := int64(binary.BigEndian.Uint64(current[:8]))
			components = append(components, I64Component(v))
			current = current[8:]
		case F64:
			if len(current) < 8 {
				panic("key: truncated f64 component")
			}
			v := math.Float64frombits(binary.BigEndian.Uint64(current[:8]))
			components = append(components, F64Component(v))
			current = current[8:]
		case Bytes:
			rest, val := parseBytes(current)
			components = append(components, BytesComponent(val))
			current = rest
		default:
			panic(fmt.Sprintf("key: invalid component type byte %d", ty))
		}
	}
	return components
}

// Int64 extracts a single I64 component, for keys known to hold exactly
// one I64 value (e.g. an autoincrement primary key).
func (k Key) Int64() (int64, error) {
	components := k.AsComponents()
	if len(components) != 1 || components[0].ty != I64 {
		return 0, ErrTypeMismatch
	}
	return components[0].i64, nil
}

// Compare orders two keys by their encoded bytes, which matches ordering
// their decoded components would give except for the negative I64/F64 and
// NaN cases noted on AppendI64 and AppendF64.
func (k Key) Compare(o Key) int {
	return compareBytes(k.storage, o.storage)
}

func escapeBytes(dst []byte, val []byte) []byte {
	for _, b := range val {
		if b == byteSeparator {
			dst = append(dst, byteSeparator)
		}
		dst = append(dst, b)
	}
	return append(dst, byteSeparator)
}

// parseBytes consumes one byte-stuffed Bytes component from the front of
// val, returning the remaining bytes and the unescaped payload. It panics
// if val doesn't contain a properly terminated component.
func parseBytes(val []byte) (rest []byte, payload []byte) {
	result := make([]byte, 0, len(val))
	escaping := false

	for idx, b := range val {
		if b == byteSeparator {
			if escaping {
				result = append(result, byteSeparator)
				escaping = false
			} else {
				escaping = true
			}
			continue
		}

		if escaping {
			// escaping and met a non-separator: that separator was the
			// terminator, and idx points just past it.
			return val[idx:], result
		}

		result = append(result, b)
	}

	if escaping {
		return val[len(val):], result
	}
	panic("key: unterminated bytes component")
}
