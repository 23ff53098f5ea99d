// Package bgzf implements the BGZF block framing used by bgzip-compressed
// FASTA files.
//
// A BGZF file is a series of concatenated gzip members, each carrying a
// "BC" extra subfield that records the total compressed size of the member.
// That size makes every block independently addressable and decompressible,
// which is what makes random access into the compressed stream possible.
// The stream is terminated by a fixed 28-byte empty block (the EOF marker).
package bgzf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"
)

const (
	// HeaderLen is the length of the fixed portion of a BGZF block header
	// through the standard 6-byte extra field.
	HeaderLen = 18

	// MaxBlockSize bounds both the compressed and decompressed size of a
	// single block. BSIZE is a 16-bit field holding size-1.
	MaxBlockSize = 1 << 16

	// footerLen is the gzip member trailer: CRC32 then ISIZE.
	footerLen = 8
)

// EOFMarker is the empty block that terminates every well-formed BGZF stream.
var EOFMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00,
	0x00, 0xff, 0x06, 0x00, 0x42, 0x43, 0x02, 0x00,
	0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// Sentinel errors for block framing and decoding.
var (
	// ErrNotBGZF is returned when data is gzip but lacks BGZF framing,
	// or is not gzip at all where a block was expected.
	ErrNotBGZF = errors.New("bgzf: not a bgzf block")

	// ErrBlockDecode is returned when a block fails to decompress or its
	// checksum or size trailer does not match the decompressed payload.
	ErrBlockDecode = errors.New("bgzf: block decode")
)

// IsGzip reports whether b starts with the gzip magic bytes.
func IsGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

// ParseHeader extracts the total compressed block size from a BGZF block
// header. b must hold at least HeaderLen bytes starting at a block boundary.
//
// The BC subfield is located by scanning the extra field rather than assuming
// the fixed 18-byte layout, since writers may include additional subfields.
func ParseHeader(b []byte) (blockSize int, err error) {
	if len(b) < HeaderLen {
		return 0, fmt.Errorf("%w: truncated header (%d bytes)", ErrNotBGZF, len(b))
	}
	if !IsGzip(b) || b[2] != 8 {
		return 0, fmt.Errorf("%w: bad gzip magic", ErrNotBGZF)
	}
	const flgFEXTRA = 0x04
	if b[3]&flgFEXTRA == 0 {
		return 0, fmt.Errorf("%w: missing extra field", ErrNotBGZF)
	}
	xlen := int(binary.LittleEndian.Uint16(b[10:12]))
	extra := b[12:]
	if len(extra) > xlen {
		extra = extra[:xlen]
	}
	for len(extra) >= 4 {
		si1, si2 := extra[0], extra[1]
		slen := int(binary.LittleEndian.Uint16(extra[2:4]))
		if si1 == 'B' && si2 == 'C' {
			if slen != 2 || len(extra) < 6 {
				return 0, fmt.Errorf("%w: malformed BC subfield", ErrNotBGZF)
			}
			bsize := int(binary.LittleEndian.Uint16(extra[4:6])) + 1
			if bsize < HeaderLen+footerLen {
				return 0, fmt.Errorf("%w: block size %d too small", ErrNotBGZF, bsize)
			}
			return bsize, nil
		}
		if len(extra) < 4+slen {
			break
		}
		extra = extra[4+slen:]
	}
	return 0, fmt.Errorf("%w: no BC subfield in extra field", ErrNotBGZF)
}

// DecodeBlock decompresses one complete BGZF block (header through trailer)
// and verifies the trailer CRC32 and ISIZE against the decompressed payload.
func DecodeBlock(block []byte) ([]byte, error) {
	bsize, err := ParseHeader(block)
	if err != nil {
		return nil, err
	}
	if len(block) < bsize {
		return nil, fmt.Errorf("%w: truncated block (%d of %d bytes)", ErrBlockDecode, len(block), bsize)
	}
	xlen := int(binary.LittleEndian.Uint16(block[10:12]))
	dataStart := 12 + xlen
	dataEnd := bsize - footerLen
	if dataStart > dataEnd {
		return nil, fmt.Errorf("%w: header overruns payload", ErrBlockDecode)
	}

	fr := flate.NewReader(bytes.NewReader(block[dataStart:dataEnd]))
	out, err := io.ReadAll(fr)
	cerr := fr.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", ErrBlockDecode, err)
	}
	if len(out) > MaxBlockSize {
		return nil, fmt.Errorf("%w: decompressed size %d exceeds block limit", ErrBlockDecode, len(out))
	}

	wantCRC := binary.LittleEndian.Uint32(block[dataEnd : dataEnd+4])
	wantISize := binary.LittleEndian.Uint32(block[dataEnd+4 : dataEnd+8])
	if uint32(len(out)) != wantISize {
		return nil, fmt.Errorf("%w: ISIZE %d, decompressed %d bytes", ErrBlockDecode, wantISize, len(out))
	}
	if crc := crc32.ChecksumIEEE(out); crc != wantCRC {
		return nil, fmt.Errorf("%w: CRC mismatch", ErrBlockDecode)
	}
	return out, nil
}

// ReadBlockAt reads and decodes the block starting at compressed offset off.
func ReadBlockAt(src io.ReaderAt, off int64) ([]byte, error) {
	var hdr [HeaderLen]byte
	if _, err := src.ReadAt(hdr[:], off); err != nil {
		return nil, fmt.Errorf("bgzf: read header at %d: %w", off, err)
	}
	bsize, err := ParseHeader(hdr[:])
	if err != nil {
		return nil, fmt.Errorf("%w (offset %d)", err, off)
	}
	block := make([]byte, bsize)
	if _, err := src.ReadAt(block, off); err != nil {
		return nil, fmt.Errorf("bgzf: read block at %d: %w", off, err)
	}
	return DecodeBlock(block)
}

// BlockSizes reads the compressed and decompressed size of the block at
// compressed offset off without decompressing it, using only the header
// BSIZE and trailer ISIZE fields. It is the cheap primitive for walking
// block boundaries.
func BlockSizes(src io.ReaderAt, off int64) (bsize, isize int, err error) {
	var hdr [HeaderLen]byte
	if _, err := src.ReadAt(hdr[:], off); err != nil {
		return 0, 0, fmt.Errorf("bgzf: read header at %d: %w", off, err)
	}
	bsize, err = ParseHeader(hdr[:])
	if err != nil {
		return 0, 0, fmt.Errorf("%w (offset %d)", err, off)
	}
	var tail [4]byte
	if _, err := src.ReadAt(tail[:], off+int64(bsize)-4); err != nil {
		return 0, 0, fmt.Errorf("bgzf: read trailer at %d: %w", off, err)
	}
	isize = int(binary.LittleEndian.Uint32(tail[:]))
	if isize > MaxBlockSize {
		return 0, 0, fmt.Errorf("%w: ISIZE %d exceeds block limit (offset %d)", ErrBlockDecode, isize, off)
	}
	return bsize, isize, nil
}

// Block is one decoded BGZF block positioned in both coordinate spaces.
type Block struct {
	// CompressedOffset is the block's start within the compressed stream.
	CompressedOffset int64

	// UncompressedOffset is the logical offset of the block's first
	// decompressed byte.
	UncompressedOffset int64

	// Data is the decompressed payload. Empty for the EOF marker.
	Data []byte
}

// Scanner walks a BGZF stream sequentially, decoding one block at a time and
// tracking block boundaries in both coordinate spaces. It is the single-pass
// reader used for index construction; random access goes through ReadBlockAt.
type Scanner struct {
	r     io.Reader
	block Block
	coff  int64
	uoff  int64
	done  bool
	err   error
}

// NewScanner returns a Scanner reading blocks from r, which must be
// positioned at a block boundary.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: r}
}

// Next advances to the next block. It returns false at end of stream or on
// error; Err distinguishes the two.
func (s *Scanner) Next() bool {
	if s.done || s.err != nil {
		return false
	}
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(s.r, hdr[:]); err != nil {
		if err == io.EOF {
			// Stream ended cleanly on a block boundary.
			s.done = true
		} else {
			s.err = fmt.Errorf("bgzf: read header at %d: %w", s.coff, err)
		}
		return false
	}
	bsize, err := ParseHeader(hdr[:])
	if err != nil {
		s.err = fmt.Errorf("%w (offset %d)", err, s.coff)
		return false
	}
	block := make([]byte, bsize)
	copy(block, hdr[:])
	if _, err := io.ReadFull(s.r, block[HeaderLen:]); err != nil {
		s.err = fmt.Errorf("bgzf: read block at %d: %w", s.coff, err)
		return false
	}
	data, err := DecodeBlock(block)
	if err != nil {
		s.err = fmt.Errorf("%w (offset %d)", err, s.coff)
		return false
	}

	s.block = Block{
		CompressedOffset:   s.coff,
		UncompressedOffset: s.uoff,
		Data:               data,
	}
	s.coff += int64(bsize)
	s.uoff += int64(len(data))
	return true
}

// Block returns the block decoded by the last successful Next.
func (s *Scanner) Block() Block {
	return s.block
}

// Err returns the first error encountered, or nil after a clean end of stream.
func (s *Scanner) Err() error {
	return s.err
}

// Offsets returns the scanner's position: the compressed and uncompressed
// offsets just past the last decoded block.
func (s *Scanner) Offsets() (compressed, uncompressed int64) {
	return s.coff, s.uoff
}
