package faigz

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Region is a canonical query: 0-based, half-open. End may exceed the
// sequence length; Fetch clamps it. EndOfSequence as End selects everything
// from Start onward.
type Region struct {
	Name  string
	Start int64
	End   int64
}

// EndOfSequence marks a region end that extends to the end of the sequence.
const EndOfSequence = int64(math.MaxInt64)

// String renders the region in the external 1-based inclusive convention.
func (r Region) String() string {
	if r.Start == 0 && r.End == EndOfSequence {
		return r.Name
	}
	if r.End == EndOfSequence {
		return fmt.Sprintf("%s:%d-", r.Name, r.Start+1)
	}
	return fmt.Sprintf("%s:%d-%d", r.Name, r.Start+1, r.End)
}

// ParseRegion parses an external region string into canonical form. This is
// the single translation point between the 1-based inclusive convention and
// the internal 0-based half-open one.
//
// Accepted forms, following samtools:
//
//	name            the whole sequence
//	name:start      from start to the end of the sequence
//	name:start-     same
//	name:start-end  start through end, 1-based inclusive
//
// Digit groups may contain commas (e.g. chr1:1,000-2,000). A name may itself
// contain colons; resolution against an index (which can try the full string
// as a name first) is the caller's concern, not ParseRegion's.
func ParseRegion(s string) (Region, error) {
	if s == "" {
		return Region{}, fmt.Errorf("%w: empty region", ErrInvalidRegion)
	}
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return Region{Name: s, Start: 0, End: EndOfSequence}, nil
	}
	name, coords := s[:i], s[i+1:]
	if name == "" {
		return Region{}, fmt.Errorf("%w: %q has no sequence name", ErrInvalidRegion, s)
	}
	startStr, endStr, _ := strings.Cut(coords, "-")

	start, err := parseCoord(startStr)
	if err != nil {
		return Region{}, fmt.Errorf("%w: %q: bad start %q", ErrInvalidRegion, s, startStr)
	}
	if start < 1 {
		return Region{}, fmt.Errorf("%w: %q: start is 1-based", ErrInvalidRegion, s)
	}

	end := EndOfSequence
	if endStr != "" {
		end, err = parseCoord(endStr)
		if err != nil {
			return Region{}, fmt.Errorf("%w: %q: bad end %q", ErrInvalidRegion, s, endStr)
		}
		if end < start {
			return Region{}, fmt.Errorf("%w: %q: end before start", ErrInvalidRegion, s)
		}
	}
	// 1-based inclusive to 0-based half-open: start shifts down, end stays.
	return Region{Name: name, Start: start - 1, End: end}, nil
}

func parseCoord(s string) (int64, error) {
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseInt(s, 10, 64)
}

// ResolveRegion resolves an external region string against the index. Like
// samtools, a string that matches a sequence name exactly (colons and all)
// selects the whole sequence; otherwise it is parsed with ParseRegion.
func (f *File) ResolveRegion(s string) (Region, error) {
	if f.index.Has(s) {
		return Region{Name: s, Start: 0, End: EndOfSequence}, nil
	}
	region, err := ParseRegion(s)
	if err != nil {
		return Region{}, err
	}
	if !f.index.Has(region.Name) {
		return Region{}, fmt.Errorf("%w: %q", ErrUnknownSequence, region.Name)
	}
	return region, nil
}
