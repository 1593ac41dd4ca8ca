// Package rman decodes RMAN release manifests: a fixed header locating a
// zstd-compressed body whose sections (bundles, languages, files,
// directories) are flatbuffer-style vtable-addressed record tables.
//
// Decoding is a single pass over an immutable input buffer and either returns
// a fully materialized File or a typed error; there is no partial result.
package rman

import (
	"fmt"
	"os"

	"github.com/mossly/lolFileTools/pkg/vtable"
)

// Magic bytes identifying an RMAN manifest.
var Magic = []byte("RMAN")

// HeaderSize is the fixed binary size of a manifest header.
const HeaderSize = 28

// File is a fully decoded manifest.
type File struct {
	Header Header `json:"header"`
	Body   Body   `json:"body"`
}

// Header locates the compressed manifest body within the input.
type Header struct {
	Magic              string `json:"magic"`
	Major              uint8  `json:"major"`
	Minor              uint8  `json:"minor"`
	Unknown            uint8  `json:"unknown"` // reserved, 0 on known manifests
	SignatureType      uint8  `json:"signature_type"`
	Offset             uint32 `json:"offset"` // compressed body start within the input
	Length             uint32 `json:"length"` // compressed body length
	ManifestID         uint64 `json:"manifest_id"`
	DecompressedLength uint32 `json:"decompressed_length"` // informational, not load-bearing
}

// Body holds the four decoded manifest sections. Sections are independent;
// cross-section references (chunk ids, directory ids) are not validated here.
type Body struct {
	Bundles     []Bundle    `json:"bundles"`
	Languages   []Language  `json:"languages"`
	Files       []FileEntry `json:"files"`
	Directories []Directory `json:"directories"`
}

// Bundle is a downloadable blob split into content-addressed chunks.
// Chunk order is download/reassembly order and is preserved.
type Bundle struct {
	BundleID uint64  `json:"bundle_id"`
	Chunks   []Chunk `json:"chunks"`
}

// Chunk is one content-addressed piece of a bundle.
type Chunk struct {
	CompressedSize   uint32 `json:"compressed_size"`
	UncompressedSize uint32 `json:"uncompressed_size"`
	ChunkID          uint64 `json:"chunk_id"`
}

// Language maps a language id to its name.
type Language struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
}

// FileEntry describes one file assembled from chunks. ChunkIDs reference
// chunks across bundles; their order defines the file's content.
type FileEntry struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	Symlink     string   `json:"symlink"`
	DirectoryID uint64   `json:"directory_id"`
	Size        uint32   `json:"size"`
	Language    uint32   `json:"language"` // bitmask over Language.ID
	ChunkIDs    []uint64 `json:"chunk_ids"`
}

// Directory is a node in the manifest's directory tree. ParentID 0 marks a
// root. Tree well-formedness is a consumer concern, not checked here.
type Directory struct {
	ID       uint64 `json:"id"`
	ParentID uint64 `json:"parent_id"`
	Name     string `json:"name"`
}

// Parse decodes a complete manifest, inflating the body with zstd.
func Parse(data []byte) (*File, error) {
	return ParseWith(data, ZstdDecompress)
}

// ParseWith decodes a complete manifest with a caller-supplied body
// Decompressor.
func ParseWith(data []byte, dec Decompressor) (*File, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	end := uint64(h.Offset) + uint64(h.Length)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("manifest body [%d:%d]: input is %d bytes: %w", h.Offset, end, len(data), vtable.ErrTruncated)
	}
	body, err := dec(data[h.Offset:end])
	if err != nil {
		return nil, fmt.Errorf("manifest body (%d compressed bytes): %w: %w", h.Length, ErrDecompressionFailed, err)
	}

	offsets, err := resolveOffsets(body)
	if err != nil {
		return nil, err
	}

	bundles, err := decodeBundles(body, offsets.bundles)
	if err != nil {
		return nil, fmt.Errorf("bundle section: %w", err)
	}
	languages, err := decodeLanguages(body, offsets.languages)
	if err != nil {
		return nil, fmt.Errorf("language section: %w", err)
	}
	files, err := decodeFiles(body, offsets.files)
	if err != nil {
		return nil, fmt.Errorf("file section: %w", err)
	}
	directories, err := decodeDirectories(body, offsets.directories)
	if err != nil {
		return nil, fmt.Errorf("directory section: %w", err)
	}

	return &File{
		Header: h,
		Body: Body{
			Bundles:     bundles,
			Languages:   languages,
			Files:       files,
			Directories: directories,
		},
	}, nil
}

// ReadFile reads and decodes a manifest from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}
