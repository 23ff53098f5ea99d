package faigz

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lumenbio/faigz/internal/bgzf"
	"github.com/lumenbio/faigz/internal/fai"
	"github.com/lumenbio/faigz/internal/gzi"
)

// SequenceRecord describes one indexed sequence.
type SequenceRecord = fai.Record

// File provides random access to an indexed FASTA file.
//
// A File is fully initialized by Open or NewFile and immutable afterwards
// except for its internal block cache, so it is safe for concurrent use.
type File struct {
	src    ByteSource
	closer io.Closer // set when the File owns src
	index  *fai.Index
	blocks *gzi.Index // nil for plain sources
	reader rangeReader
}

// Open opens the FASTA file at path, plain or BGZF-compressed.
//
// Open probes for the sidecar indexes <path>.fai and, for compressed input,
// <path>.gzi. Missing indexes are built in a single pass over the file and
// persisted next to it unless WithoutIndexWrite is set. Present indexes are
// loaded as-is, so indexes written by samtools faidx or bgzip -i are reused
// without rebuilding.
func Open(path string, opts ...Option) (*File, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	src, err := openMmapSource(path)
	if err != nil {
		return nil, fmt.Errorf("faigz: open %s: %w", path, err)
	}

	f, err := newFile(src, &sidecars{path: path, persist: cfg.persist}, cfg)
	if err != nil {
		_ = src.Close() //nolint:errcheck // already failing
		return nil, err
	}
	f.closer = src
	return f, nil
}

// NewFile assembles a File from an existing source and pre-loaded index
// data, for sources that are not local paths (for example an HTTP range
// source). gziData is ignored for uncompressed sources. Nil index data is
// built by scanning src, which reads it end to end; supply both sidecars for
// remote sources. The caller retains ownership of src.
func NewFile(src ByteSource, faiData, gziData []byte, opts ...Option) (*File, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return newFile(src, &sidecars{faiData: faiData, gziData: gziData}, cfg)
}

// sidecars abstracts where index data comes from: files next to a path, or
// byte slices supplied by the caller.
type sidecars struct {
	path    string
	persist bool
	faiData []byte
	gziData []byte
}

func (s *sidecars) fai() (io.Reader, bool, error) {
	if s.path == "" {
		if s.faiData == nil {
			return nil, false, nil
		}
		return bytes.NewReader(s.faiData), true, nil
	}
	return s.open(s.path + ".fai")
}

func (s *sidecars) gzi() (io.Reader, bool, error) {
	if s.path == "" {
		if s.gziData == nil {
			return nil, false, nil
		}
		return bytes.NewReader(s.gziData), true, nil
	}
	return s.open(s.path + ".gzi")
}

func (s *sidecars) open(path string) (io.Reader, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // sidecar path derives from the opened file
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("faigz: read sidecar %s: %w", path, err)
	}
	return bytes.NewReader(data), true, nil
}

func newFile(src ByteSource, sc *sidecars, cfg config) (*File, error) {
	compressed, err := isBGZF(src)
	if err != nil {
		return nil, err
	}

	f := &File{src: src}

	faiReader, haveFai, err := sc.fai()
	if err != nil {
		return nil, err
	}
	gziReader, haveGzi, err := sc.gzi()
	if err != nil {
		return nil, err
	}

	// Explicit two-step per index: probe the sidecar, build only on miss.
	// Nothing is mutated lazily during query serving.
	var scanned *scanResult
	if haveFai {
		f.index, err = fai.Parse(faiReader)
		if err != nil {
			return nil, err
		}
	} else {
		scanned, err = scan(src, compressed)
		if err != nil {
			return nil, err
		}
		f.index = scanned.index
		if err := sc.persistFai(f.index); err != nil {
			return nil, err
		}
	}

	if compressed {
		switch {
		case haveGzi:
			bounds, err := gzi.Parse(gziReader)
			if err != nil {
				return nil, err
			}
			f.blocks, err = completeBlockIndex(bounds, src)
			if err != nil {
				return nil, err
			}
		case scanned != nil:
			f.blocks, err = gzi.New(scanned.bounds)
			if err != nil {
				return nil, err
			}
			if err := sc.persistGzi(f.blocks); err != nil {
				return nil, err
			}
		default:
			// .fai was present but .gzi was not: walk block headers
			// without decompressing anything.
			f.blocks, err = walkBlockIndex(src)
			if err != nil {
				return nil, err
			}
			if err := sc.persistGzi(f.blocks); err != nil {
				return nil, err
			}
		}
		f.reader = newBlockReader(src, f.blocks, cfg.cacheBlocks)
	} else {
		f.reader = &directReader{src: src}
	}

	return f, nil
}

// isBGZF sniffs the source. Plain FASTA and BGZF are accepted; gzip without
// BGZF framing is rejected since it cannot serve random access.
func isBGZF(src ByteSource) (bool, error) {
	if src.Size() == 0 {
		return false, nil
	}
	head := make([]byte, bgzf.HeaderLen)
	if src.Size() < int64(len(head)) {
		head = head[:src.Size()]
	}
	if _, err := src.ReadAt(head, 0); err != nil {
		return false, fmt.Errorf("faigz: read file head: %w", err)
	}
	if !bgzf.IsGzip(head) {
		return false, nil
	}
	if _, err := bgzf.ParseHeader(head); err != nil {
		return false, err
	}
	return true, nil
}

// scanResult carries everything a single forward pass produces.
type scanResult struct {
	index  *fai.Index
	bounds []gzi.Boundary
}

// scan runs the single-pass index build: the sequence index always, and for
// compressed sources the block boundary table as a side effect of walking
// blocks.
func scan(src ByteSource, compressed bool) (*scanResult, error) {
	sr := io.NewSectionReader(src, 0, src.Size())
	builder := fai.NewBuilder()

	if !compressed {
		if _, err := io.Copy(builder, sr); err != nil {
			return nil, err
		}
		index, err := builder.Finish()
		if err != nil {
			return nil, err
		}
		return &scanResult{index: index}, nil
	}

	bounds := []gzi.Boundary{{}}
	s := bgzf.NewScanner(sr)
	for s.Next() {
		blk := s.Block()
		if blk.CompressedOffset > 0 {
			bounds = append(bounds, gzi.Boundary{
				Compressed:   blk.CompressedOffset,
				Uncompressed: blk.UncompressedOffset,
			})
		}
		if len(blk.Data) > 0 {
			if _, err := builder.Write(blk.Data); err != nil {
				return nil, err
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	index, err := builder.Finish()
	if err != nil {
		return nil, err
	}

	// A well-formed stream ends with the EOF marker, whose boundary doubles
	// as the sentinel. Synthesize one if the marker is missing.
	coff, uoff := s.Offsets()
	if len(bounds) == 1 || bounds[len(bounds)-1].Uncompressed < uoff {
		bounds = append(bounds, gzi.Boundary{Compressed: coff, Uncompressed: uoff})
	}
	return &scanResult{index: index, bounds: bounds}, nil
}

// walkBlockIndex builds the block boundary table from block headers alone.
func walkBlockIndex(src ByteSource) (*gzi.Index, error) {
	return completeBlockIndex([]gzi.Boundary{{}}, src)
}

// completeBlockIndex extends a boundary table to the end of the compressed
// stream and validates it against the stream itself. Loaded .gzi tables pass
// through here: bgzip's tables end at the EOF-marker boundary already, while
// partial tables are extended block by block using header and trailer fields
// only.
func completeBlockIndex(bounds []gzi.Boundary, src ByteSource) (*gzi.Index, error) {
	size := src.Size()
	last := bounds[len(bounds)-1]
	if last.Compressed > size {
		return nil, fmt.Errorf("%w: boundary %d beyond compressed size %d",
			ErrMalformedBlockIndex, last.Compressed, size)
	}
	c, u := last.Compressed, last.Uncompressed
	for c < size {
		bsize, isize, err := bgzf.BlockSizes(src, c)
		if err != nil {
			return nil, fmt.Errorf("%w: boundary %d does not start a block: %v",
				ErrMalformedBlockIndex, c, err)
		}
		next := c + int64(bsize)
		if next > size {
			return nil, fmt.Errorf("%w: block at %d overruns compressed size %d",
				ErrMalformedBlockIndex, c, size)
		}
		if next == size {
			if isize != 0 {
				// No EOF marker; close the table with a synthesized
				// sentinel at end of stream.
				bounds = append(bounds, gzi.Boundary{Compressed: next, Uncompressed: u + int64(isize)})
			}
			break
		}
		c, u = next, u+int64(isize)
		bounds = append(bounds, gzi.Boundary{Compressed: c, Uncompressed: u})
	}
	return gzi.New(bounds)
}

func (s *sidecars) persistFai(ix *fai.Index) error {
	if s.path == "" || !s.persist {
		return nil
	}
	return writeSidecar(s.path+".fai", func(w io.Writer) error {
		_, err := ix.WriteTo(w)
		return err
	})
}

func (s *sidecars) persistGzi(ix *gzi.Index) error {
	if s.path == "" || !s.persist {
		return nil
	}
	return writeSidecar(s.path+".gzi", func(w io.Writer) error {
		_, err := ix.WriteTo(w)
		return err
	})
}

// writeSidecar writes atomically: temp file in the same directory, then
// rename over the target.
func writeSidecar(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".faigz-*")
	if err != nil {
		return fmt.Errorf("faigz: write sidecar %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	if err := write(tmp); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath) //nolint:errcheck // cleanup
		return fmt.Errorf("faigz: write sidecar %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // cleanup
		return fmt.Errorf("faigz: write sidecar %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // cleanup
		return fmt.Errorf("faigz: write sidecar %s: %w", path, err)
	}
	return nil
}

// Names returns sequence names in index order. The slice is shared; callers
// must not modify it.
func (f *File) Names() []string {
	return f.index.Names()
}

// Has reports whether the index contains name.
func (f *File) Has(name string) bool {
	return f.index.Has(name)
}

// Len returns the length in bases of the named sequence.
func (f *File) Len(name string) (int64, bool) {
	rec, ok := f.index.Get(name)
	if !ok {
		return 0, false
	}
	return rec.Length, true
}

// Record returns the index record for name.
func (f *File) Record(name string) (SequenceRecord, bool) {
	return f.index.Get(name)
}

// Compressed reports whether the underlying file is BGZF-compressed.
func (f *File) Compressed() bool {
	return f.blocks != nil
}

// Close releases the underlying source if the File owns it (Open does,
// NewFile does not).
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
