package value

import "errors"

// Error kinds for the value codec. These are distinct sentinels, not a
// hierarchy - callers distinguish them with errors.Is.
var (
	// ErrPrematureEnd is returned when the input is shorter than the
	// frame currently being decoded requires.
	ErrPrematureEnd = errors.New("vdb/value: premature end of input")

	// ErrInvalidType is returned when a byte read as a type tag doesn't
	// match any of Any/I64/F64/Bytes/List/Struct/Stop.
	ErrInvalidType = errors.New("vdb/value: invalid type tag")

	// ErrInvalidUTF8 is returned decoding a Bytes field into a string
	// specialization when the bytes aren't valid UTF-8.
	ErrInvalidUTF8 = errors.New("vdb/value: invalid utf-8")

	// ErrDepthExceeded guards recursive decode of untrusted input
	// (nested struct/list fields) against unbounded recursion.
	ErrDepthExceeded = errors.New("vdb/value: nesting depth exceeded")
)
