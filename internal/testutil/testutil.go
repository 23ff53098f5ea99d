// Package testutil provides fixture helpers shared by tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/klauspost/compress/flate"

	"github.com/lumenbio/faigz/internal/bgzf"
)

// BGZFCompress compresses data into a BGZF stream, splitting the input into
// blocks of at most blockSize uncompressed bytes and appending the EOF
// marker. Fixture-only: the library itself never writes compressed output.
func BGZFCompress(tb testing.TB, data []byte, blockSize int) []byte {
	tb.Helper()
	if blockSize <= 0 || blockSize > bgzf.MaxBlockSize {
		tb.Fatalf("bad block size %d", blockSize)
	}
	var out bytes.Buffer
	for len(data) > 0 {
		n := min(len(data), blockSize)
		appendBlock(tb, &out, data[:n])
		data = data[n:]
	}
	out.Write(bgzf.EOFMarker)
	return out.Bytes()
}

func appendBlock(tb testing.TB, out *bytes.Buffer, chunk []byte) {
	tb.Helper()

	var cdata bytes.Buffer
	fw, err := flate.NewWriter(&cdata, flate.DefaultCompression)
	if err != nil {
		tb.Fatalf("flate writer: %v", err)
	}
	if _, err := fw.Write(chunk); err != nil {
		tb.Fatalf("flate write: %v", err)
	}
	if err := fw.Close(); err != nil {
		tb.Fatalf("flate close: %v", err)
	}

	bsize := bgzf.HeaderLen + cdata.Len() + 8
	if bsize > bgzf.MaxBlockSize {
		tb.Fatalf("compressed block size %d exceeds limit; use a smaller block size", bsize)
	}

	hdr := []byte{
		0x1f, 0x8b, 8, 0x04, // magic, deflate, FEXTRA
		0, 0, 0, 0, // mtime
		0, 0xff, // xfl, os
		6, 0, // xlen
		'B', 'C', 2, 0, // BC subfield
		0, 0, // bsize placeholder
	}
	binary.LittleEndian.PutUint16(hdr[16:18], uint16(bsize-1))
	out.Write(hdr)
	out.Write(cdata.Bytes())

	var tail [8]byte
	binary.LittleEndian.PutUint32(tail[0:4], crc32.ChecksumIEEE(chunk))
	binary.LittleEndian.PutUint32(tail[4:8], uint32(len(chunk)))
	out.Write(tail[:])
}

// FoldSequence folds bases into lines of width bases each, terminated by \n.
func FoldSequence(bases string, width int) string {
	var sb strings.Builder
	for len(bases) > 0 {
		n := min(len(bases), width)
		sb.WriteString(bases[:n])
		sb.WriteByte('\n')
		bases = bases[n:]
	}
	return sb.String()
}

// Seq generates a deterministic pseudo-random base string of length n.
func Seq(n int) string {
	const alphabet = "ACGT"
	b := make([]byte, n)
	state := uint64(n)*2654435761 + 1
	for i := range b {
		state = state*6364136223846793005 + 1442695040888963407
		b[i] = alphabet[state>>62]
	}
	return string(b)
}
