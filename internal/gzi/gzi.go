// Package gzi implements the bgzip .gzi block index: an ordered table of
// (compressed offset, uncompressed offset) pairs marking BGZF block starts.
//
// On disk the table is little-endian: a uint64 pair count followed by the
// pairs, excluding the implicit first boundary at (0, 0). The layout matches
// bgzip's, so indexes are interchangeable between implementations. In memory
// the table always carries the implicit first boundary and ends with a
// sentinel boundary whose uncompressed offset is the total uncompressed
// length of the stream.
package gzi

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Sentinel errors for block index parsing and resolution.
var (
	// ErrMalformed is returned when block index data is structurally
	// invalid: offsets not strictly increasing, or a missing or
	// inconsistent sentinel.
	ErrMalformed = errors.New("gzi: malformed block index")

	// ErrOffsetOutOfRange is returned when resolving an uncompressed
	// offset at or beyond the total uncompressed length.
	ErrOffsetOutOfRange = errors.New("gzi: offset out of range")
)

// Boundary marks the start of one BGZF block in both coordinate spaces.
type Boundary struct {
	Compressed   int64
	Uncompressed int64
}

// Block locates one BGZF block and its extent in both coordinate spaces.
type Block struct {
	Boundary

	// CSize is the compressed size of the block.
	CSize int64

	// USize is the decompressed size of the block.
	USize int64
}

// Voffset is a virtual offset: a block's compressed start plus an offset
// into that block's decompressed bytes. It is internal to the resolver and
// never exposed to callers as a raw integer.
type Voffset struct {
	Block  Block
	Within int64
}

// Index is an immutable block index. Concurrent readers share it without
// locking.
type Index struct {
	// bounds[0] is always (0, 0); the last element is the sentinel.
	bounds []Boundary
}

// New validates boundaries and returns an Index. bounds must start at
// (0, 0) and end with the sentinel; compressed offsets must strictly
// increase, while uncompressed offsets may repeat across a zero-length
// block. An empty stream is the single boundary (0, 0).
func New(bounds []Boundary) (*Index, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%w: empty boundary table", ErrMalformed)
	}
	if bounds[0] != (Boundary{}) {
		return nil, fmt.Errorf("%w: first boundary %+v, want (0, 0)", ErrMalformed, bounds[0])
	}
	for i := 1; i < len(bounds); i++ {
		prev, cur := bounds[i-1], bounds[i]
		if cur.Compressed <= prev.Compressed || cur.Uncompressed < prev.Uncompressed {
			return nil, fmt.Errorf("%w: boundary %d (%d, %d) does not advance past (%d, %d)",
				ErrMalformed, i, cur.Compressed, cur.Uncompressed, prev.Compressed, prev.Uncompressed)
		}
	}
	return &Index{bounds: bounds}, nil
}

// Parse reads an on-disk .gzi table and returns the stored boundaries,
// prepending the implicit (0, 0) first boundary. The result still needs a
// sentinel; callers complete and validate it against the compressed stream
// via New.
func Parse(r io.Reader) ([]Boundary, error) {
	br := bufio.NewReader(r)
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: reading entry count: %v", ErrMalformed, err)
	}
	const maxEntries = 1 << 32 // 256 TiB of compressed data; reject nonsense counts
	if count > maxEntries {
		return nil, fmt.Errorf("%w: implausible entry count %d", ErrMalformed, count)
	}
	bounds := make([]Boundary, 1, count+1)
	for i := uint64(0); i < count; i++ {
		var pair [2]uint64
		if err := binary.Read(br, binary.LittleEndian, &pair); err != nil {
			return nil, fmt.Errorf("%w: reading entry %d: %v", ErrMalformed, i, err)
		}
		b := Boundary{Compressed: int64(pair[0]), Uncompressed: int64(pair[1])}
		if b.Compressed < 0 || b.Uncompressed < 0 {
			return nil, fmt.Errorf("%w: entry %d overflows", ErrMalformed, i)
		}
		bounds = append(bounds, b)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing bytes after entry table", ErrMalformed)
	}
	if len(bounds) == 2 && bounds[1] == (Boundary{}) {
		// Empty-stream index: a lone (0, 0) sentinel collapses onto the
		// implicit first boundary.
		bounds = bounds[:1]
	}
	return bounds, nil
}

// WriteTo serializes the index in .gzi format, excluding the implicit first
// boundary. The sentinel is written as the final pair.
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	stored := ix.bounds[1:]
	var written int64
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(stored))); err != nil {
		return written, err
	}
	written += 8
	for _, b := range stored {
		if err := binary.Write(bw, binary.LittleEndian, [2]uint64{uint64(b.Compressed), uint64(b.Uncompressed)}); err != nil {
			return written, err
		}
		written += 16
	}
	return written, bw.Flush()
}

// Boundaries returns the full in-memory boundary table including the
// implicit first boundary and the sentinel. The slice is shared; callers
// must not modify it.
func (ix *Index) Boundaries() []Boundary {
	return ix.bounds
}

// NumBlocks returns the number of addressable blocks (the sentinel is not a
// block).
func (ix *Index) NumBlocks() int {
	return len(ix.bounds) - 1
}

// Uncompressed returns the total uncompressed length recorded by the
// sentinel.
func (ix *Index) Uncompressed() int64 {
	return ix.bounds[len(ix.bounds)-1].Uncompressed
}

// BlockAt returns the i'th block.
func (ix *Index) BlockAt(i int) Block {
	cur, next := ix.bounds[i], ix.bounds[i+1]
	return Block{
		Boundary: cur,
		CSize:    next.Compressed - cur.Compressed,
		USize:    next.Uncompressed - cur.Uncompressed,
	}
}

// Find returns the index of the block containing uncompressed offset uoff:
// the block whose range [start, next start) covers it. An exact boundary
// match resolves to that block, never the one before it.
func (ix *Index) Find(uoff int64) (int, error) {
	if uoff < 0 || uoff >= ix.Uncompressed() {
		return 0, fmt.Errorf("%w: offset %d, stream length %d", ErrOffsetOutOfRange, uoff, ix.Uncompressed())
	}
	n := ix.NumBlocks()
	i := sort.Search(n, func(i int) bool {
		return ix.bounds[i+1].Uncompressed > uoff
	})
	return i, nil
}

// Resolve maps an uncompressed offset to a virtual offset.
func (ix *Index) Resolve(uoff int64) (Voffset, error) {
	i, err := ix.Find(uoff)
	if err != nil {
		return Voffset{}, err
	}
	blk := ix.BlockAt(i)
	return Voffset{Block: blk, Within: uoff - blk.Uncompressed}, nil
}
