package rman

import (
	"fmt"

	"github.com/mossly/lolFileTools/pkg/vtable"
)

// Vtable slot indices per record schema. Slots keep their schema positions;
// unused slots are skipped, never compacted.
const (
	bundleSlotID = iota
	bundleSlotChunks
	bundleSlotUnknown
	bundleSlotHeaderSize
	bundleSlots
)

const (
	chunkSlotUnknown1 = iota
	chunkSlotUnknown2
	chunkSlotID
	chunkSlotCompressedSize
	chunkSlotUncompressedSize
	chunkSlots
)

const (
	languageSlotName = iota
	languageSlotUnknown1
	languageSlotID
	languageSlots
)

const (
	directorySlotUnknown1 = iota
	directorySlotUnknown2
	directorySlotID
	directorySlotParentID
	directorySlotName
	directorySlots
)

const (
	fileSlotUnknown1 = iota
	fileSlotChunks
	fileSlotID
	fileSlotDirectoryID
	fileSlotSize
	fileSlotName
	fileSlotLanguageMask
	fileSlotUnknown2
	fileSlotUnknown3
	fileSlotUnknown4
	fileSlotUnknown5
	fileSlotSymlink
	fileSlotUnknown6
	fileSlotUnknown7
	fileSlotUnknown8
	fileSlots
)

type offsetMap struct {
	bundles     uint32
	languages   uint32
	files       uint32
	directories uint32
}

// resolveOffsets reads the root record of the decompressed body and turns its
// four relative section offsets into absolute positions. The additive
// constants 4/8/12/16 are each field's byte position within the root record.
func resolveOffsets(body []byte) (offsetMap, error) {
	headerOffset, err := vtable.U32(body, 0)
	if err != nil {
		return offsetMap{}, fmt.Errorf("root offset: %w", err)
	}

	var raw [4]uint32
	for i := range raw {
		v, err := vtable.U32(body, headerOffset+4+uint32(i)*4)
		if err != nil {
			return offsetMap{}, fmt.Errorf("root record at %d: section %d: %w", headerOffset, i, err)
		}
		raw[i] = v
	}

	return offsetMap{
		bundles:     headerOffset + raw[0] + 4,
		languages:   headerOffset + raw[1] + 8,
		files:       headerOffset + raw[2] + 12,
		directories: headerOffset + raw[3] + 16,
	}, nil
}

func decodeBundles(body []byte, start uint32) ([]Bundle, error) {
	return vtable.DecodeVector(body, start, bundleSlots, func(t vtable.Table) (Bundle, error) {
		idPos, err := t.Required(bundleSlotID)
		if err != nil {
			return Bundle{}, fmt.Errorf("bundle id: %w", err)
		}
		id, err := vtable.U64(body, idPos)
		if err != nil {
			return Bundle{}, fmt.Errorf("bundle id: %w", err)
		}

		chunksPos, err := t.Required(bundleSlotChunks)
		if err != nil {
			return Bundle{}, fmt.Errorf("bundle %#x chunks: %w", id, err)
		}
		chunks, err := decodeChunks(body, chunksPos)
		if err != nil {
			return Bundle{}, fmt.Errorf("bundle %#x chunks: %w", id, err)
		}

		return Bundle{BundleID: id, Chunks: chunks}, nil
	})
}

func decodeChunks(body []byte, start uint32) ([]Chunk, error) {
	return vtable.DecodeVector(body, start, chunkSlots, func(t vtable.Table) (Chunk, error) {
		idPos, err := t.Required(chunkSlotID)
		if err != nil {
			return Chunk{}, fmt.Errorf("chunk id: %w", err)
		}
		id, err := vtable.U64(body, idPos)
		if err != nil {
			return Chunk{}, fmt.Errorf("chunk id: %w", err)
		}

		compPos, err := t.Required(chunkSlotCompressedSize)
		if err != nil {
			return Chunk{}, fmt.Errorf("chunk %#x compressed size: %w", id, err)
		}
		comp, err := vtable.U32(body, compPos)
		if err != nil {
			return Chunk{}, fmt.Errorf("chunk %#x compressed size: %w", id, err)
		}

		uncompPos, err := t.Required(chunkSlotUncompressedSize)
		if err != nil {
			return Chunk{}, fmt.Errorf("chunk %#x uncompressed size: %w", id, err)
		}
		uncomp, err := vtable.U32(body, uncompPos)
		if err != nil {
			return Chunk{}, fmt.Errorf("chunk %#x uncompressed size: %w", id, err)
		}

		return Chunk{ChunkID: id, CompressedSize: comp, UncompressedSize: uncomp}, nil
	})
}

func decodeLanguages(body []byte, start uint32) ([]Language, error) {
	return vtable.DecodeVector(body, start, languageSlots, func(t vtable.Table) (Language, error) {
		namePos, err := t.Required(languageSlotName)
		if err != nil {
			return Language{}, fmt.Errorf("language name: %w", err)
		}
		name, err := vtable.String(body, namePos)
		if err != nil {
			return Language{}, fmt.Errorf("language name: %w", err)
		}

		idPos, err := t.Required(languageSlotID)
		if err != nil {
			return Language{}, fmt.Errorf("language %q id: %w", name, err)
		}
		id, err := vtable.U8(body, idPos)
		if err != nil {
			return Language{}, fmt.Errorf("language %q id: %w", name, err)
		}

		return Language{ID: id, Name: name}, nil
	})
}

func decodeDirectories(body []byte, start uint32) ([]Directory, error) {
	return vtable.DecodeVector(body, start, directorySlots, func(t vtable.Table) (Directory, error) {
		namePos, err := t.Required(directorySlotName)
		if err != nil {
			return Directory{}, fmt.Errorf("directory name: %w", err)
		}
		name, err := vtable.String(body, namePos)
		if err != nil {
			return Directory{}, fmt.Errorf("directory name: %w", err)
		}

		// id and parent_id default to 0 when absent; 0 marks a root.
		var id, parent uint64
		if pos, ok := t.Field(directorySlotID); ok {
			if id, err = vtable.U64(body, pos); err != nil {
				return Directory{}, fmt.Errorf("directory %q id: %w", name, err)
			}
		}
		if pos, ok := t.Field(directorySlotParentID); ok {
			if parent, err = vtable.U64(body, pos); err != nil {
				return Directory{}, fmt.Errorf("directory %q parent id: %w", name, err)
			}
		}

		return Directory{ID: id, ParentID: parent, Name: name}, nil
	})
}

func decodeFiles(body []byte, start uint32) ([]FileEntry, error) {
	return vtable.DecodeVector(body, start, fileSlots, func(t vtable.Table) (FileEntry, error) {
		namePos, err := t.Required(fileSlotName)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file name: %w", err)
		}
		name, err := vtable.String(body, namePos)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file name: %w", err)
		}

		symlinkPos, err := t.Required(fileSlotSymlink)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q symlink: %w", name, err)
		}
		symlink, err := vtable.String(body, symlinkPos)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q symlink: %w", name, err)
		}

		idPos, err := t.Required(fileSlotID)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q id: %w", name, err)
		}
		id, err := vtable.U64(body, idPos)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q id: %w", name, err)
		}

		dirPos, err := t.Required(fileSlotDirectoryID)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q directory id: %w", name, err)
		}
		dirID, err := vtable.U64(body, dirPos)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q directory id: %w", name, err)
		}

		sizePos, err := t.Required(fileSlotSize)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q size: %w", name, err)
		}
		size, err := vtable.U32(body, sizePos)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q size: %w", name, err)
		}

		langPos, err := t.Required(fileSlotLanguageMask)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q language mask: %w", name, err)
		}
		lang, err := vtable.U32(body, langPos)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q language mask: %w", name, err)
		}

		chunksPos, err := t.Required(fileSlotChunks)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q chunks: %w", name, err)
		}
		chunkIDs, err := vtable.LongVector(body, chunksPos)
		if err != nil {
			return FileEntry{}, fmt.Errorf("file %q chunks: %w", name, err)
		}

		return FileEntry{
			ID:          id,
			Name:        name,
			Symlink:     symlink,
			DirectoryID: dirID,
			Size:        size,
			Language:    lang,
			ChunkIDs:    chunkIDs,
		}, nil
	})
}
