package bgzf_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbio/faigz/internal/bgzf"
	"github.com/lumenbio/faigz/internal/testutil"
)

func TestParseHeaderEOFMarker(t *testing.T) {
	size, err := bgzf.ParseHeader(bgzf.EOFMarker)
	require.NoError(t, err)
	assert.Equal(t, len(bgzf.EOFMarker), size)
}

func TestParseHeaderRejectsPlainGzip(t *testing.T) {
	// gzip magic but no FEXTRA flag
	hdr := []byte{0x1f, 0x8b, 8, 0, 0, 0, 0, 0, 0, 0xff, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := bgzf.ParseHeader(hdr)
	require.ErrorIs(t, err, bgzf.ErrNotBGZF)
}

func TestParseHeaderRejectsNonGzip(t *testing.T) {
	_, err := bgzf.ParseHeader(bytes.Repeat([]byte{'A'}, bgzf.HeaderLen))
	require.ErrorIs(t, err, bgzf.ErrNotBGZF)
}

func TestDecodeBlockRoundTrip(t *testing.T) {
	payload := []byte(testutil.Seq(1000))
	stream := testutil.BGZFCompress(t, payload, 4096)

	size, err := bgzf.ParseHeader(stream)
	require.NoError(t, err)

	got, err := bgzf.DecodeBlock(stream[:size])
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDecodeBlockCorruptPayload(t *testing.T) {
	stream := testutil.BGZFCompress(t, []byte(testutil.Seq(500)), 4096)
	size, err := bgzf.ParseHeader(stream)
	require.NoError(t, err)

	block := bytes.Clone(stream[:size])
	block[bgzf.HeaderLen+2] ^= 0xff

	_, err = bgzf.DecodeBlock(block)
	require.ErrorIs(t, err, bgzf.ErrBlockDecode)
}

func TestDecodeBlockTruncated(t *testing.T) {
	stream := testutil.BGZFCompress(t, []byte(testutil.Seq(500)), 4096)
	size, err := bgzf.ParseHeader(stream)
	require.NoError(t, err)

	_, err = bgzf.DecodeBlock(stream[:size-4])
	require.ErrorIs(t, err, bgzf.ErrBlockDecode)
}

func TestScannerWalksBlocks(t *testing.T) {
	payload := []byte(testutil.Seq(10_000))
	stream := testutil.BGZFCompress(t, payload, 3000)

	s := bgzf.NewScanner(bytes.NewReader(stream))

	var got []byte
	var blocks []bgzf.Block
	for s.Next() {
		b := s.Block()
		blocks = append(blocks, b)
		assert.Equal(t, int64(len(got)), b.UncompressedOffset)
		got = append(got, b.Data...)
	}
	require.NoError(t, s.Err())
	assert.Equal(t, payload, got)

	// 4 data blocks of <=3000 bytes plus the EOF marker.
	require.Len(t, blocks, 5)
	assert.Empty(t, blocks[4].Data)

	coff, uoff := s.Offsets()
	assert.Equal(t, int64(len(stream)), coff)
	assert.Equal(t, int64(len(payload)), uoff)
}

func TestScannerErrorOnGarbage(t *testing.T) {
	stream := testutil.BGZFCompress(t, []byte(testutil.Seq(100)), 4096)
	stream = append(stream, []byte("trailing garbage that is not a block")...)

	s := bgzf.NewScanner(bytes.NewReader(stream))
	for s.Next() { //nolint:revive // draining the scanner
	}
	require.ErrorIs(t, s.Err(), bgzf.ErrNotBGZF)
}

func TestReadBlockAt(t *testing.T) {
	payload := []byte(testutil.Seq(6000))
	stream := testutil.BGZFCompress(t, payload, 2000)

	src := bytes.NewReader(stream)

	// Walk boundaries with a scanner, then re-read each block randomly.
	s := bgzf.NewScanner(bytes.NewReader(stream))
	for s.Next() {
		b := s.Block()
		got, err := bgzf.ReadBlockAt(src, b.CompressedOffset)
		require.NoError(t, err)
		assert.Equal(t, b.Data, got)
	}
	require.NoError(t, s.Err())
}
