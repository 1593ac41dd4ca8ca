package rman

import (
	"encoding/binary"
	"fmt"

	"github.com/mossly/lolFileTools/pkg/vtable"
)

// ParseHeader decodes the fixed 28-byte manifest header. It validates the
// magic tag only; the body is not touched.
func ParseHeader(data []byte) (Header, error) {
	if err := vtable.Tag(data, 0, Magic); err != nil {
		return Header{}, fmt.Errorf("manifest header: %w", err)
	}
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("manifest header: %d bytes, need %d: %w", len(data), HeaderSize, vtable.ErrTruncated)
	}

	return Header{
		Magic:              string(data[0:4]),
		Major:              data[4],
		Minor:              data[5],
		Unknown:            data[6],
		SignatureType:      data[7],
		Offset:             binary.LittleEndian.Uint32(data[8:12]),
		Length:             binary.LittleEndian.Uint32(data[12:16]),
		ManifestID:         binary.LittleEndian.Uint64(data[16:24]),
		DecompressedLength: binary.LittleEndian.Uint32(data[24:28]),
	}, nil
}
