package faigz

import (
	"errors"

	"github.com/lumenbio/faigz/internal/bgzf"
	"github.com/lumenbio/faigz/internal/fai"
	"github.com/lumenbio/faigz/internal/gzi"
)

// Errors re-exported from the index and block layers.
var (
	// ErrMalformedIndex is returned when a .fai sequence index cannot be
	// parsed, or when FASTA input cannot be indexed.
	ErrMalformedIndex = fai.ErrMalformed

	// ErrInconsistentLineWidth is returned during index construction when
	// a sequence's folded lines are not uniform before its final line.
	ErrInconsistentLineWidth = fai.ErrInconsistentLineWidth

	// ErrMalformedBlockIndex is returned when a .gzi block index is
	// structurally invalid or inconsistent with the compressed stream.
	ErrMalformedBlockIndex = gzi.ErrMalformed

	// ErrOffsetOutOfRange is returned when an uncompressed offset resolves
	// beyond the end of the compressed stream.
	ErrOffsetOutOfRange = gzi.ErrOffsetOutOfRange

	// ErrNotBGZF is returned when a gzip file lacks the BGZF framing
	// required for random access.
	ErrNotBGZF = bgzf.ErrNotBGZF

	// ErrBlockDecode is returned when a compression block fails to
	// decompress or fails its checksum.
	ErrBlockDecode = bgzf.ErrBlockDecode
)

// Errors specific to the query surface.
var (
	// ErrUnknownSequence is returned when a region names a sequence that
	// is not in the index.
	ErrUnknownSequence = errors.New("faigz: unknown sequence")

	// ErrEmptyRegion is returned when a region lies beyond the sequence
	// end or is inverted after clamping. Callers that want samtools-style
	// presentation may render it as empty output.
	ErrEmptyRegion = errors.New("faigz: empty or invalid region")

	// ErrInvalidRegion is returned when a region string cannot be parsed.
	ErrInvalidRegion = errors.New("faigz: invalid region")
)
