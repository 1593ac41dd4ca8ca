package vtable

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// String resolves an indirect string field: the u32 at fieldPos is an offset
// relative to fieldPos leading to a u32 length prefix, with the string bytes
// following it. Invalid UTF-8 is repaired with U+FFFD rather than failing;
// a corrupt name must not abort the structural decode around it.
func String(buf []byte, fieldPos uint32) (string, error) {
	rel, err := U32(buf, fieldPos)
	if err != nil {
		return "", fmt.Errorf("string offset at %d: %w", fieldPos, err)
	}
	lenPos := fieldPos + rel
	n, err := U32(buf, lenPos)
	if err != nil {
		return "", fmt.Errorf("string length at %d: %w", lenPos, err)
	}
	strPos := uint64(lenPos) + 4
	if strPos+uint64(n) > uint64(len(buf)) {
		return "", fmt.Errorf("string at %d: %d bytes: buffer is %d bytes: %w", strPos, n, len(buf), ErrTruncated)
	}
	raw := buf[strPos : strPos+uint64(n)]

	clean, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw), nil
	}
	return string(clean), nil
}
