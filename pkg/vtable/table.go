package vtable

import (
	"encoding/binary"
	"fmt"
)

// Table is a single record resolved through its vtable. Field positions are
// looked up by schema slot index; a slot holding 0 marks the field absent.
// Resolution happens once, in Resolve; all field lookups reuse the loaded
// slot values.
type Table struct {
	// Pos is the table's absolute position in the buffer. Slot values are
	// relative to it.
	Pos uint32

	offsets []uint16
}

// Resolve reads the signed 32-bit soffset at pos and loads fieldCount vtable
// slots from pos - soffset. The subtraction is signed: the vtable usually
// precedes the table but may sit on either side of it.
func Resolve(buf []byte, pos uint32, fieldCount int) (Table, error) {
	so, err := I32(buf, pos)
	if err != nil {
		return Table{}, fmt.Errorf("table at %d: %w", pos, err)
	}
	vpos := int64(pos) - int64(so)
	if vpos < 0 || vpos+int64(fieldCount)*2 > int64(len(buf)) {
		return Table{}, fmt.Errorf("vtable at %d (%d slots): buffer is %d bytes: %w", vpos, fieldCount, len(buf), ErrTruncated)
	}
	offsets := make([]uint16, fieldCount)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint16(buf[vpos+int64(i)*2:])
	}
	return Table{Pos: pos, offsets: offsets}, nil
}

// Field returns the absolute position of slot i's value, or false when the
// field is absent. An absent field must never be read at Pos+0; callers
// substitute the field's documented default instead.
func (t Table) Field(i int) (uint32, bool) {
	off := t.offsets[i]
	if off == 0 {
		return 0, false
	}
	return t.Pos + uint32(off), true
}

// Required is Field for slots that have no documented default.
func (t Table) Required(i int) (uint32, error) {
	pos, ok := t.Field(i)
	if !ok {
		return 0, fmt.Errorf("table at %d: slot %d: %w", t.Pos, i, ErrMissingField)
	}
	return pos, nil
}
