// Package wad decodes WAD archives: a version-dispatched header (major 1, 2
// or 3) followed by a flat, fixed-stride table of compressed content entries.
// Payload bytes are never resolved or inflated here; entries carry absolute
// offsets for a consumer to act on.
package wad

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mossly/lolFileTools/pkg/vtable"
)

// Magic bytes identifying a WAD archive.
var Magic = []byte("RW")

var (
	// ErrUnsupportedVersion reports a major version with no known layout.
	ErrUnsupportedVersion = errors.New("unsupported archive version")
	// ErrInvalidCompression reports a compression tag outside the enum range.
	ErrInvalidCompression = errors.New("invalid compression type")
)

// CompressionType selects the algorithm a content entry's payload is stored
// with. REFERENCE entries carry a path to another archive instead of data.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionGzip
	CompressionReference
	CompressionZstd
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "NONE"
	case CompressionGzip:
		return "GZIP"
	case CompressionReference:
		return "REFERENCE"
	case CompressionZstd:
		return "ZSTD"
	}
	return fmt.Sprintf("CompressionType(%d)", uint8(c))
}

// MarshalJSON emits the enum name.
func (c CompressionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Content table geometry per major version. The stride is derived from the
// version, not from the header's entry_size field.
const (
	v1DataStart = 12 // magic(2) + major + minor + entry offset(2) + entry size(2) + file count(4)
	v1Stride    = 24
	v2DataStart = 104 // 4 + length byte + ecdsa region(83) + checksum(8) + 2 + 2 + 4
	v2Stride    = 32
	v3DataStart = 272 // 4 + ecdsa(256) + checksum(8) + file count(4)
	v3Stride    = 32

	v2ECDSARegion = 83
	v3ECDSASize   = 256
)

// File is a fully decoded archive table, in on-disk entry order. Order is
// significant: duplicate entries reference earlier payloads by position.
type File struct {
	Header  Header    `json:"header"`
	Content []Content `json:"content"`
}

// Header carries the version-dependent archive metadata. Major is the
// variant tag: EntryOffset and EntrySize are decoded for majors 1 and 2,
// ECDSA and FileChecksum for majors 2 and 3. ECDSA is the raw signature
// blob, opaque to decoding.
type Header struct {
	Major        uint8  `json:"major"`
	Minor        uint8  `json:"minor"`
	FileCount    uint32 `json:"file_count"`
	EntryOffset  uint16 `json:"entry_offset,omitempty"`
	EntrySize    uint16 `json:"entry_size,omitempty"`
	ECDSA        []byte `json:"ecdsa,omitempty"`
	FileChecksum uint64 `json:"file_checksum,omitempty"`
}

// Content is one entry of the archive table. DataOffset is the absolute
// payload position within the archive. IsDuplicate and SHA256 are decoded
// for major >= 2 only; SHA256 holds the low 64 bits of the content hash,
// per format.
type Content struct {
	Hash             uint64          `json:"hash"`
	DataOffset       uint32          `json:"data_offset"`
	CompressedSize   uint32          `json:"compressed_size"`
	UncompressedSize uint32          `json:"uncompressed_size"`
	CompressionType  CompressionType `json:"compression_type"`
	IsDuplicate      bool            `json:"is_duplicate,omitempty"`
	SHA256           uint64          `json:"sha256,omitempty"`
}

// ParseHeader decodes the archive header, dispatching on the major version
// byte. There is no fallback layout for unknown majors.
func ParseHeader(data []byte) (Header, error) {
	if err := vtable.Tag(data, 0, Magic); err != nil {
		return Header{}, fmt.Errorf("archive header: %w", err)
	}
	major, err := vtable.U8(data, 2)
	if err != nil {
		return Header{}, fmt.Errorf("archive header: %w", err)
	}
	minor, err := vtable.U8(data, 3)
	if err != nil {
		return Header{}, fmt.Errorf("archive header: %w", err)
	}

	h := Header{Major: major, Minor: minor}
	switch major {
	case 1:
		if len(data) < v1DataStart {
			return Header{}, fmt.Errorf("v1 header: %d bytes, need %d: %w", len(data), v1DataStart, vtable.ErrTruncated)
		}
		h.EntryOffset = binary.LittleEndian.Uint16(data[4:6])
		h.EntrySize = binary.LittleEndian.Uint16(data[6:8])
		h.FileCount = binary.LittleEndian.Uint32(data[8:12])

	case 2:
		if len(data) < v2DataStart {
			return Header{}, fmt.Errorf("v2 header: %d bytes, need %d: %w", len(data), v2DataStart, vtable.ErrTruncated)
		}
		// The signature occupies a length-prefixed prefix of a fixed
		// 83-byte padded region; the remainder is ignored.
		n := data[4]
		if int(n) > v2ECDSARegion {
			return Header{}, fmt.Errorf("v2 header: ecdsa length %d exceeds %d-byte region: %w", n, v2ECDSARegion, vtable.ErrTruncated)
		}
		h.ECDSA = append([]byte(nil), data[5:5+int(n)]...)
		h.FileChecksum = binary.LittleEndian.Uint64(data[88:96])
		h.EntryOffset = binary.LittleEndian.Uint16(data[96:98])
		h.EntrySize = binary.LittleEndian.Uint16(data[98:100])
		h.FileCount = binary.LittleEndian.Uint32(data[100:104])

	case 3:
		if len(data) < v3DataStart {
			return Header{}, fmt.Errorf("v3 header: %d bytes, need %d: %w", len(data), v3DataStart, vtable.ErrTruncated)
		}
		h.ECDSA = append([]byte(nil), data[4:4+v3ECDSASize]...)
		h.FileChecksum = binary.LittleEndian.Uint64(data[260:268])
		h.FileCount = binary.LittleEndian.Uint32(data[268:272])

	default:
		return Header{}, fmt.Errorf("archive header: major version %d: %w", major, ErrUnsupportedVersion)
	}
	return h, nil
}

// Parse decodes a complete archive table.
func Parse(data []byte) (*File, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	dataStart, stride := contentGeometry(h.Major)
	need := uint64(dataStart) + uint64(h.FileCount)*uint64(stride)
	if need > uint64(len(data)) {
		return nil, fmt.Errorf("content table: %d entries of %d bytes at %d: input is %d bytes: %w",
			h.FileCount, stride, dataStart, len(data), vtable.ErrTruncated)
	}

	content := make([]Content, 0, h.FileCount)
	for i := uint32(0); i < h.FileCount; i++ {
		pos := uint64(dataStart) + uint64(i)*uint64(stride)
		c, err := decodeContent(data[pos:pos+uint64(stride)], h.Major)
		if err != nil {
			return nil, fmt.Errorf("entry %d at %d: %w", i, pos, err)
		}
		content = append(content, c)
	}

	return &File{Header: h, Content: content}, nil
}

// ReadFile reads and decodes an archive table from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// contentGeometry returns the content table start and entry stride for a
// validated major version.
func contentGeometry(major uint8) (dataStart, stride uint32) {
	switch major {
	case 1:
		return v1DataStart, v1Stride
	case 2:
		return v2DataStart, v2Stride
	default:
		return v3DataStart, v3Stride
	}
}

// decodeContent decodes one fixed-stride record. rec is exactly stride bytes.
func decodeContent(rec []byte, major uint8) (Content, error) {
	c := Content{
		Hash:             binary.LittleEndian.Uint64(rec[0:8]),
		DataOffset:       binary.LittleEndian.Uint32(rec[8:12]),
		CompressedSize:   binary.LittleEndian.Uint32(rec[12:16]),
		UncompressedSize: binary.LittleEndian.Uint32(rec[16:20]),
	}

	// The compression tag is a u32 for major 1 (low byte significant) and a
	// single byte for majors 2 and 3.
	var raw uint8
	if major == 1 {
		raw = uint8(binary.LittleEndian.Uint32(rec[20:24]))
	} else {
		raw = rec[20]
	}
	if raw > uint8(CompressionZstd) {
		return Content{}, fmt.Errorf("compression type %d: %w", raw, ErrInvalidCompression)
	}
	c.CompressionType = CompressionType(raw)

	if major >= 2 {
		c.IsDuplicate = rec[21] > 0
		c.SHA256 = binary.LittleEndian.Uint64(rec[24:32])
	}
	return c, nil
}
