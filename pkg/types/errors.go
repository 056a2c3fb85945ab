package types

import "errors"

// Chunk identity errors
var (
	// ErrZeroChunkOrder is returned when a chunk order of zero is requested
	ErrZeroChunkOrder = errors.New("chunk order must be non-zero")

	// ErrChunkOrderOverflow is returned when a sequence number cannot be mapped
	// into the 32-bit chunk order space
	ErrChunkOrderOverflow = errors.New("chunk order overflow")
)
