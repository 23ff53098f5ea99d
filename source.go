package faigz

import (
	"fmt"
	"io"
	"strconv"

	"golang.org/x/exp/mmap"
	"golang.org/x/sync/singleflight"

	"github.com/lumenbio/faigz/cache"
	"github.com/lumenbio/faigz/internal/bgzf"
	"github.com/lumenbio/faigz/internal/gzi"
)

// ByteSource provides random access to the raw bytes of a FASTA file. For
// compressed files these are the compressed bytes; the block layer sits on
// top.
//
// Implementations exist for local files (mmap) and HTTP range requests
// (package http). Implementations must support concurrent ReadAt calls.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// mmapSource adapts an mmapped file to ByteSource.
type mmapSource struct {
	r *mmap.ReaderAt
}

func openMmapSource(path string) (*mmapSource, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &mmapSource{r: r}, nil
}

func (s *mmapSource) ReadAt(p []byte, off int64) (int, error) { return s.r.ReadAt(p, off) }
func (s *mmapSource) Size() int64                             { return int64(s.r.Len()) }
func (s *mmapSource) Close() error                            { return s.r.Close() }

// rangeReader reads a byte range of the logical uncompressed stream. The
// variant is chosen once at open time: direct for plain files, block-indexed
// for BGZF.
type rangeReader interface {
	// readRange returns bytes [start, end) of the uncompressed stream.
	readRange(start, end int64) ([]byte, error)
}

// directReader serves plain files with a seek-free positional read. It works
// with or without a cache in front of it; correctness never depends on one.
type directReader struct {
	src ByteSource
}

func (d *directReader) readRange(start, end int64) ([]byte, error) {
	if end <= start {
		return nil, nil
	}
	buf := make([]byte, end-start)
	if _, err := d.src.ReadAt(buf, start); err != nil {
		return nil, fmt.Errorf("faigz: read [%d, %d): %w", start, end, err)
	}
	return buf, nil
}

// blockReader serves BGZF files: it resolves uncompressed offsets through
// the block index, decompresses the minimal run of blocks, and assembles the
// requested range. Decompressed blocks are kept in a bounded LRU cache, and
// concurrent misses for the same block are collapsed with singleflight so a
// block is decompressed once per miss storm. A block is published to the
// cache only after it decompressed completely.
type blockReader struct {
	src    ByteSource
	index  *gzi.Index
	blocks *cache.Blocks
	group  singleflight.Group
}

func newBlockReader(src ByteSource, index *gzi.Index, capacity int) *blockReader {
	return &blockReader{
		src:    src,
		index:  index,
		blocks: cache.NewBlocks(capacity),
	}
}

func (b *blockReader) readRange(start, end int64) ([]byte, error) {
	if end <= start {
		return nil, nil
	}
	first, err := b.index.Find(start)
	if err != nil {
		return nil, err
	}
	last, err := b.index.Find(end - 1)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, end-start)
	for i := first; i <= last; i++ {
		blk := b.index.BlockAt(i)
		if blk.USize == 0 {
			continue
		}
		data, err := b.block(blk)
		if err != nil {
			return nil, err
		}
		lo, hi := int64(0), int64(len(data))
		if i == first {
			lo = start - blk.Uncompressed
		}
		if i == last {
			hi = end - blk.Uncompressed
		}
		out = append(out, data[lo:hi]...)
	}
	return out, nil
}

// block returns the decompressed contents of blk, from cache when possible.
func (b *blockReader) block(blk gzi.Block) ([]byte, error) {
	if data, ok := b.blocks.Get(blk.Compressed); ok {
		return data, nil
	}
	key := strconv.FormatInt(blk.Compressed, 10)
	v, err, _ := b.group.Do(key, func() (any, error) {
		// Another caller may have just finished this block.
		if data, ok := b.blocks.Get(blk.Compressed); ok {
			return data, nil
		}
		data, err := bgzf.ReadBlockAt(b.src, blk.Compressed)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) != blk.USize {
			return nil, fmt.Errorf("%w: block at %d decompressed to %d bytes, index records %d",
				ErrMalformedBlockIndex, blk.Compressed, len(data), blk.USize)
		}
		b.blocks.Put(blk.Compressed, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
