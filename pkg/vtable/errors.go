package vtable

import "errors"

// Decode failure kinds. Errors returned by this package and by the format
// decoders wrap one of these sentinels together with the byte position and
// the expected/found values, so malformed assets can be diagnosed from the
// error alone.
var (
	ErrTruncated    = errors.New("read past end of buffer")
	ErrInvalidMagic = errors.New("invalid magic")
	ErrMissingField = errors.New("missing required field")
)
