package rman

import (
	"errors"

	"github.com/DataDog/zstd"
)

// ErrDecompressionFailed reports that the compressed body could not be
// inflated. The underlying decompressor error is wrapped alongside it.
var ErrDecompressionFailed = errors.New("body decompression failed")

// Decompressor turns the compressed manifest body into the decompressed
// buffer the section decoders operate on. It is invoked once per decode.
type Decompressor func([]byte) ([]byte, error)

// ZstdDecompress is the default Decompressor.
func ZstdDecompress(data []byte) ([]byte, error) {
	return zstd.Decompress(nil, data)
}
