package rman

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/DataDog/zstd"

	"github.com/mossly/lolFileTools/pkg/vtable"
)

// bodyBuilder assembles a decompressed manifest body: a root offset map
// followed by vtable-addressed section vectors, with string blobs appended
// at the end and patched in.
type bodyBuilder struct {
	buf     []byte
	pending []pendingString
}

type pendingString struct {
	fieldPos uint32
	val      string
}

func (b *bodyBuilder) pos() uint32  { return uint32(len(b.buf)) }
func (b *bodyBuilder) u8(v uint8)   { b.buf = append(b.buf, v) }
func (b *bodyBuilder) u16(v uint16) { b.buf = binary.LittleEndian.AppendUint16(b.buf, v) }
func (b *bodyBuilder) u32(v uint32) { b.buf = binary.LittleEndian.AppendUint32(b.buf, v) }
func (b *bodyBuilder) u64(v uint64) { b.buf = binary.LittleEndian.AppendUint64(b.buf, v) }
func (b *bodyBuilder) i32(v int32)  { b.u32(uint32(v)) }

func (b *bodyBuilder) patchU32(pos, v uint32) {
	binary.LittleEndian.PutUint32(b.buf[pos:], v)
}

// table writes a vtable followed by the table's soffset and returns the
// table position. Field values are appended by the caller; slot values are
// offsets relative to the returned position.
func (b *bodyBuilder) table(slots []uint16) uint32 {
	vpos := b.pos()
	for _, s := range slots {
		b.u16(s)
	}
	tpos := b.pos()
	b.i32(int32(tpos - vpos))
	return tpos
}

// vector writes a length-prefixed vector of n indirect tables; build must
// append table i and return its position.
func (b *bodyBuilder) vector(n int, build func(i int) uint32) uint32 {
	start := b.pos()
	b.u32(uint32(n))
	slotBase := b.pos()
	for i := 0; i < n; i++ {
		b.u32(0)
	}
	for i := 0; i < n; i++ {
		slot := slotBase + uint32(4*i)
		b.patchU32(slot, build(i)-slot)
	}
	return start
}

// strField reserves a string-offset field at the current position; the blob
// is written by flushStrings.
func (b *bodyBuilder) strField(s string) {
	b.pending = append(b.pending, pendingString{b.pos(), s})
	b.u32(0)
}

func (b *bodyBuilder) flushStrings() {
	for _, p := range b.pending {
		data := b.pos()
		b.u32(uint32(len(p.val)))
		b.buf = append(b.buf, p.val...)
		b.patchU32(p.fieldPos, data-p.fieldPos)
	}
	b.pending = nil
}

// buildTestBody lays out a small but complete manifest body and returns it
// with the Body a decode should produce.
func buildTestBody() ([]byte, Body) {
	b := &bodyBuilder{}

	b.u32(4) // root record position
	b.u32(0) // first root word, skipped by the offset map
	rawBase := b.pos()
	for i := 0; i < 4; i++ {
		b.u32(0) // section offsets, patched below
	}

	bundleStart := b.vector(1, func(int) uint32 {
		tpos := b.table([]uint16{4, 12, 0, 0})
		b.u64(0xb1d)
		b.vector(2, func(j int) uint32 {
			ct := b.table([]uint16{0, 0, 4, 12, 16})
			b.u64(0xc1 + uint64(j))
			b.u32(100 + uint32(j))
			b.u32(200 + uint32(j))
			return ct
		})
		return tpos
	})

	langs := []struct {
		id   uint8
		name string
	}{{1, "en_US"}, {28, "ja_JP"}}
	languageStart := b.vector(len(langs), func(i int) uint32 {
		tpos := b.table([]uint16{4, 0, 8})
		b.strField(langs[i].name)
		b.u8(langs[i].id)
		return tpos
	})

	fileStart := b.vector(2, func(i int) uint32 {
		if i == 0 {
			tpos := b.table([]uint16{0, 4, 24, 32, 40, 44, 48, 0, 0, 0, 0, 52, 0, 0, 0})
			b.u32(2) // chunk id count
			b.u64(0xc1)
			b.u64(0xc2)
			b.u64(0xf1)
			b.u64(3)
			b.u32(1234)
			b.strField("Champions/Aatrox.wad.client")
			b.u32(5)
			b.strField("link")
			return tpos
		}
		tpos := b.table([]uint16{0, 4, 8, 16, 24, 28, 32, 0, 0, 0, 0, 36, 0, 0, 0})
		b.u32(0) // no chunk ids
		b.u64(0xf2)
		b.u64(0)
		b.u32(0)
		b.strField("README.txt")
		b.u32(0)
		b.strField("")
		return tpos
	})

	directoryStart := b.vector(2, func(i int) uint32 {
		if i == 0 {
			// id and parent_id absent, defaulting to 0
			tpos := b.table([]uint16{0, 0, 0, 0, 4})
			b.strField("")
			return tpos
		}
		tpos := b.table([]uint16{0, 0, 4, 12, 20})
		b.u64(3)
		b.u64(7)
		b.strField("Champions")
		return tpos
	})

	b.flushStrings()

	// The offset map adds 4/8/12/16 to the raw values; store the
	// complements so the absolute section starts come back out.
	b.patchU32(rawBase, bundleStart-4-4)
	b.patchU32(rawBase+4, languageStart-4-8)
	b.patchU32(rawBase+8, fileStart-4-12)
	b.patchU32(rawBase+12, directoryStart-4-16)

	want := Body{
		Bundles: []Bundle{{
			BundleID: 0xb1d,
			Chunks: []Chunk{
				{ChunkID: 0xc1, CompressedSize: 100, UncompressedSize: 200},
				{ChunkID: 0xc2, CompressedSize: 101, UncompressedSize: 201},
			},
		}},
		Languages: []Language{
			{ID: 1, Name: "en_US"},
			{ID: 28, Name: "ja_JP"},
		},
		Files: []FileEntry{
			{
				ID:          0xf1,
				Name:        "Champions/Aatrox.wad.client",
				Symlink:     "link",
				DirectoryID: 3,
				Size:        1234,
				Language:    5,
				ChunkIDs:    []uint64{0xc1, 0xc2},
			},
			{
				ID:       0xf2,
				Name:     "README.txt",
				ChunkIDs: []uint64{},
			},
		},
		Directories: []Directory{
			{ID: 0, ParentID: 0, Name: ""},
			{ID: 3, ParentID: 7, Name: "Champions"},
		},
	}
	return b.buf, want
}

// wrapManifest prefixes a 28-byte header declaring compressed as the body.
func wrapManifest(compressed []byte, decompressedLength uint32) []byte {
	var buf []byte
	buf = append(buf, Magic...)
	buf = append(buf, 1, 0, 0, 0)
	buf = binary.LittleEndian.AppendUint32(buf, HeaderSize)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(compressed)))
	buf = binary.LittleEndian.AppendUint64(buf, 0xdc9f6f78a04934d6)
	buf = binary.LittleEndian.AppendUint32(buf, decompressedLength)
	return append(buf, compressed...)
}

func TestParseHeader(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		var data []byte
		data = append(data, "RMAN"...)
		data = append(data, 1, 0, 0, 0)
		data = binary.LittleEndian.AppendUint32(data, 0x1000)
		data = binary.LittleEndian.AppendUint32(data, 0x2000)
		data = binary.LittleEndian.AppendUint64(data, 0xdeadbeefcafef00d)
		data = binary.LittleEndian.AppendUint32(data, 0x3000)

		h, err := ParseHeader(data)
		if err != nil {
			t.Fatalf("parse header: %v", err)
		}
		want := Header{
			Magic:              "RMAN",
			Major:              1,
			Minor:              0,
			Unknown:            0,
			SignatureType:      0,
			Offset:             0x1000,
			Length:             0x2000,
			ManifestID:         0xdeadbeefcafef00d,
			DecompressedLength: 0x3000,
		}
		if h != want {
			t.Errorf("header mismatch:\n got %+v\nwant %+v", h, want)
		}
	})

	t.Run("InvalidMagic", func(t *testing.T) {
		data := make([]byte, HeaderSize)
		copy(data, "NAMR")
		if _, err := ParseHeader(data); !errors.Is(err, vtable.ErrInvalidMagic) {
			t.Errorf("expected ErrInvalidMagic, got %v", err)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		if _, err := ParseHeader([]byte("RMAN" + "\x01\x00")); !errors.Is(err, vtable.ErrTruncated) {
			t.Errorf("expected ErrTruncated, got %v", err)
		}
	})
}

func TestParseWith(t *testing.T) {
	body, want := buildTestBody()
	identity := func(b []byte) ([]byte, error) { return b, nil }

	t.Run("FullManifest", func(t *testing.T) {
		f, err := ParseWith(wrapManifest(body, uint32(len(body))), identity)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !reflect.DeepEqual(f.Body, want) {
			t.Errorf("body mismatch:\n got %+v\nwant %+v", f.Body, want)
		}
	})

	t.Run("BodyRangePastEnd", func(t *testing.T) {
		data := wrapManifest(body, uint32(len(body)))
		binary.LittleEndian.PutUint32(data[12:], uint32(len(body))+100) // declared length too long
		if _, err := ParseWith(data, identity); !errors.Is(err, vtable.ErrTruncated) {
			t.Errorf("expected ErrTruncated, got %v", err)
		}
	})

	t.Run("TruncatedBody", func(t *testing.T) {
		_, err := ParseWith(wrapManifest(body[:8], 8), identity)
		if !errors.Is(err, vtable.ErrTruncated) {
			t.Errorf("expected ErrTruncated, got %v", err)
		}
	})
}

func TestParse(t *testing.T) {
	body, want := buildTestBody()

	t.Run("ZstdRoundTrip", func(t *testing.T) {
		compressed, err := zstd.Compress(nil, body)
		if err != nil {
			t.Fatalf("compress: %v", err)
		}
		f, err := Parse(wrapManifest(compressed, uint32(len(body))))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if !reflect.DeepEqual(f.Body, want) {
			t.Errorf("body mismatch:\n got %+v\nwant %+v", f.Body, want)
		}
		if f.Header.DecompressedLength != uint32(len(body)) {
			t.Errorf("decompressed length: got %d, want %d", f.Header.DecompressedLength, len(body))
		}
	})

	t.Run("CorruptBody", func(t *testing.T) {
		garbage := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
		_, err := Parse(wrapManifest(garbage, 64))
		if !errors.Is(err, ErrDecompressionFailed) {
			t.Errorf("expected ErrDecompressionFailed, got %v", err)
		}
	})
}
