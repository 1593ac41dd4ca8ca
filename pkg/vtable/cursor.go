// Package vtable implements the offset-table decoding primitives shared by
// the RMAN and WAD decoders: bounds-checked little-endian reads over an
// immutable buffer, flatbuffer-style table/vtable resolution, and
// vector/string indirection.
//
// Every function is a pure function of (buf, pos). Positions are uint32, the
// native offset width of both formats; all bounds arithmetic widens to 64
// bits so hostile offsets cannot wrap a check.
package vtable

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

func check(buf []byte, pos, width uint32) error {
	if uint64(pos)+uint64(width) > uint64(len(buf)) {
		return fmt.Errorf("read %d bytes at %d: buffer is %d bytes: %w", width, pos, len(buf), ErrTruncated)
	}
	return nil
}

// U8 reads an unsigned byte at pos.
func U8(buf []byte, pos uint32) (uint8, error) {
	if err := check(buf, pos, 1); err != nil {
		return 0, err
	}
	return buf[pos], nil
}

// U16 reads a little-endian uint16 at pos.
func U16(buf []byte, pos uint32) (uint16, error) {
	if err := check(buf, pos, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[pos:]), nil
}

// U32 reads a little-endian uint32 at pos.
func U32(buf []byte, pos uint32) (uint32, error) {
	if err := check(buf, pos, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[pos:]), nil
}

// U64 reads a little-endian uint64 at pos.
func U64(buf []byte, pos uint32) (uint64, error) {
	if err := check(buf, pos, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[pos:]), nil
}

// I32 reads a little-endian int32 at pos.
func I32(buf []byte, pos uint32) (int32, error) {
	v, err := U32(buf, pos)
	return int32(v), err
}

// Tag verifies that the bytes at pos equal want.
func Tag(buf []byte, pos uint32, want []byte) error {
	if err := check(buf, pos, uint32(len(want))); err != nil {
		return err
	}
	got := buf[pos : uint64(pos)+uint64(len(want))]
	if !bytes.Equal(got, want) {
		return fmt.Errorf("tag at %d: expected %q, found %q: %w", pos, want, got, ErrInvalidMagic)
	}
	return nil
}
