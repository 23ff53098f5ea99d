// Package fai implements the samtools .fai sequence index: one tab-separated
// line per sequence recording its name, length, and on-disk line layout.
//
// Offsets refer to the logical uncompressed byte stream, so the same index
// serves both plain and BGZF-compressed FASTA files.
package fai

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Sentinel errors for index parsing and construction.
var (
	// ErrMalformed is returned when index data or FASTA input cannot be
	// parsed into a valid sequence index.
	ErrMalformed = errors.New("fai: malformed index")

	// ErrInconsistentLineWidth is returned when a sequence's folded lines
	// are not uniform before its final line.
	ErrInconsistentLineWidth = errors.New("fai: inconsistent line width")
)

// Record describes the on-disk layout of one sequence.
type Record struct {
	// Name is the first whitespace-delimited token of the header line.
	Name string

	// Length is the total number of bases.
	Length int64

	// Offset is the byte offset of the first base in the logical
	// uncompressed stream.
	Offset int64

	// LineBases is the number of bases per folded line. All lines of the
	// sequence except possibly the last hold exactly this many bases.
	LineBases int

	// LineBytes is the number of bytes per folded line including the
	// terminator. LineBytes >= LineBases always holds.
	LineBytes int
}

// Index maps sequence names to records, preserving insertion order.
// An Index is immutable once returned by Parse or a Builder; concurrent
// readers share it without locking.
type Index struct {
	names []string
	recs  map[string]Record
}

// Get returns the record for name.
func (ix *Index) Get(name string) (Record, bool) {
	rec, ok := ix.recs[name]
	return rec, ok
}

// Has reports whether name is present.
func (ix *Index) Has(name string) bool {
	_, ok := ix.recs[name]
	return ok
}

// Names returns sequence names in insertion order. The returned slice is
// shared; callers must not modify it.
func (ix *Index) Names() []string {
	return ix.names
}

// Len returns the number of sequences.
func (ix *Index) Len() int {
	return len(ix.names)
}

func (ix *Index) add(rec Record) error {
	if _, dup := ix.recs[rec.Name]; dup {
		return fmt.Errorf("%w: duplicate sequence name %q", ErrMalformed, rec.Name)
	}
	if ix.recs == nil {
		ix.recs = make(map[string]Record)
	}
	ix.names = append(ix.names, rec.Name)
	ix.recs[rec.Name] = rec
	return nil
}

// Parse reads a .fai index.
//
// Each line must hold exactly five tab-separated fields:
// name, length, offset, line bases, line bytes.
func Parse(r io.Reader) (*Index, error) {
	ix := &Index{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := sc.Text()
		if line == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w (line %d)", err, lineno)
		}
		if err := ix.add(rec); err != nil {
			return nil, fmt.Errorf("%w (line %d)", err, lineno)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("fai: read index: %w", err)
	}
	return ix, nil
}

func parseLine(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		return Record{}, fmt.Errorf("%w: %d fields, want 5", ErrMalformed, len(fields))
	}
	if fields[0] == "" {
		return Record{}, fmt.Errorf("%w: empty sequence name", ErrMalformed)
	}
	nums := make([]int64, 4)
	for i, f := range fields[1:] {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil || n < 0 {
			return Record{}, fmt.Errorf("%w: bad numeric field %q", ErrMalformed, f)
		}
		nums[i] = n
	}
	rec := Record{
		Name:      fields[0],
		Length:    nums[0],
		Offset:    nums[1],
		LineBases: int(nums[2]),
		LineBytes: int(nums[3]),
	}
	if rec.Length > 0 && rec.LineBases <= 0 {
		return Record{}, fmt.Errorf("%w: sequence %q has no line width", ErrMalformed, rec.Name)
	}
	if rec.LineBytes < rec.LineBases {
		return Record{}, fmt.Errorf("%w: sequence %q line bytes %d < line bases %d",
			ErrMalformed, rec.Name, rec.LineBytes, rec.LineBases)
	}
	return rec, nil
}

// WriteTo serializes the index in .fai format. Records are written in
// insertion order, so Parse(WriteTo(ix)) reproduces ix exactly.
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, name := range ix.names {
		rec := ix.recs[name]
		n, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			rec.Name, rec.Length, rec.Offset, rec.LineBases, rec.LineBytes)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
