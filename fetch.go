package faigz

import (
	"fmt"
)

// Fetch returns the bases of the region, with line folding stripped. The
// result length is exactly the clamped end minus start.
//
// The region end is clamped to the sequence length. A region starting
// exactly at the sequence end returns an empty, nil-error result; a region
// strictly beyond the end (or inverted after clamping) returns
// ErrEmptyRegion. Callers wanting samtools-style display may treat
// ErrEmptyRegion as empty output.
func (f *File) Fetch(region Region) ([]byte, error) {
	rec, ok := f.index.Get(region.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSequence, region.Name)
	}

	start, end := region.Start, region.End
	if end > rec.Length {
		end = rec.Length
	}
	if start == rec.Length && start == end {
		return nil, nil
	}
	if start < 0 || start > rec.Length || start > end {
		return nil, fmt.Errorf("%w: %s (sequence length %d)", ErrEmptyRegion, region.String(), rec.Length)
	}
	if start == end {
		return nil, nil
	}

	raw, err := f.reader.readRange(baseOffset(rec, start), baseOffset(rec, end-1)+1)
	if err != nil {
		return nil, err
	}
	return stripFolding(rec, start, end, raw)
}

// FetchAll returns the complete sequence for name.
func (f *File) FetchAll(name string) ([]byte, error) {
	return f.Fetch(Region{Name: name, Start: 0, End: EndOfSequence})
}

// baseOffset maps a base position to its byte offset in the logical
// uncompressed stream, skipping over line terminators.
func baseOffset(rec SequenceRecord, base int64) int64 {
	lb := int64(rec.LineBases)
	return rec.Offset + base/lb*int64(rec.LineBytes) + base%lb
}

// stripFolding removes the embedded line terminators from raw, which holds
// the byte range covering bases [start, end) of rec.
func stripFolding(rec SequenceRecord, start, end int64, raw []byte) ([]byte, error) {
	want := end - start
	out := make([]byte, 0, want)
	col := start % int64(rec.LineBases)
	pos := int64(0)
	for int64(len(out)) < want {
		take := int64(rec.LineBases) - col
		take = min(take, want-int64(len(out)))
		if pos+take > int64(len(raw)) {
			return nil, fmt.Errorf("faigz: sequence %q: short read: %d bytes for %d bases",
				rec.Name, len(raw), want)
		}
		out = append(out, raw[pos:pos+take]...)
		pos += take + int64(rec.LineBytes-rec.LineBases)
		col = 0
	}
	return out, nil
}
