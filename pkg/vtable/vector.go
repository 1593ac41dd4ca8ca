package vtable

import (
	"encoding/binary"
	"fmt"
)

// DecodeVector decodes a length-prefixed vector of indirect table references.
// The u32 at start is the element count; element i's offset slot sits at
// start+4+4i and holds an offset relative to the slot itself, leading to the
// element's table. Each table is resolved against a fieldCount-slot vtable
// and handed to decode. Elements are decoded in index order and the returned
// slice preserves that order.
func DecodeVector[T any](buf []byte, start uint32, fieldCount int, decode func(Table) (T, error)) ([]T, error) {
	count, err := U32(buf, start)
	if err != nil {
		return nil, fmt.Errorf("vector at %d: %w", start, err)
	}
	if uint64(start)+4+uint64(count)*4 > uint64(len(buf)) {
		return nil, fmt.Errorf("vector at %d: %d offset slots: buffer is %d bytes: %w", start, count, len(buf), ErrTruncated)
	}

	out := make([]T, 0, count)
	for i := uint32(0); i < count; i++ {
		slot := start + 4 + 4*i
		rel := binary.LittleEndian.Uint32(buf[slot:])
		tab, err := Resolve(buf, slot+rel, fieldCount)
		if err != nil {
			return nil, fmt.Errorf("vector element %d: %w", i, err)
		}
		v, err := decode(tab)
		if err != nil {
			return nil, fmt.Errorf("vector element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// LongVector decodes a length-prefixed vector of inline u64 values: a u32
// count at start followed by the values themselves, no indirection.
func LongVector(buf []byte, start uint32) ([]uint64, error) {
	count, err := U32(buf, start)
	if err != nil {
		return nil, fmt.Errorf("long vector at %d: %w", start, err)
	}
	if uint64(start)+4+uint64(count)*8 > uint64(len(buf)) {
		return nil, fmt.Errorf("long vector at %d: %d values: buffer is %d bytes: %w", start, count, len(buf), ErrTruncated)
	}

	out := make([]uint64, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(buf[uint64(start)+4+uint64(i)*8:])
	}
	return out, nil
}
