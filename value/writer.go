package value

import (
	"encoding/binary"
	"math"
)

// Writer accumulates encoded wire bytes. It only supports append
// operations.
type Writer struct {
	Bytes []byte
}

// NewWriter returns a Writer with cap bytes of pre-reserved capacity.
func NewWriter(cap int) *Writer {
	return &Writer{Bytes: make([]byte, 0, cap)}
}

func (w *Writer) WriteI64(v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	w.Bytes = append(w.Bytes, buf[:]...)
}

func (w *Writer) WriteF64(v float64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	w.Bytes = append(w.Bytes, buf[:]...)
}

func (w *Writer) WriteU32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.Bytes = append(w.Bytes, buf[:]...)
}

// WriteBytes frames val as a 4-byte big-endian length followed by val.
func (w *Writer) WriteBytes(val []byte) {
	w.WriteU32(uint32(len(val)))
	w.Bytes = append(w.Bytes, val...)
}

// WriteFieldHeader writes a struct field's 2-byte (type, index) header.
func (w *Writer) WriteFieldHeader(ty Ty, index uint8) {
	w.Bytes = append(w.Bytes, byte(ty), index)
}

// WriteListHeader writes a list's 1-byte item-type tag plus its 4-byte
// big-endian element count.
func (w *Writer) WriteListHeader(itemTy Ty, count uint32) {
	w.Bytes = append(w.Bytes, byte(itemTy))
	w.WriteU32(count)
}

// WriteStop writes the two-octet struct terminator (Stop, 255).
func (w *Writer) WriteStop() {
	w.WriteFieldHeader(Stop, 255)
}
