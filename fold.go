package faigz

import (
	"bufio"
	"fmt"
	"io"
)

// WriteFasta fetches a region and writes it as FASTA: a header line naming
// the region in the external convention, then the sequence folded at width
// bases per line. A width <= 0 uses the sequence's original line width.
//
// Output folding is a presentation concern only; it is independent of how
// the file stores its lines.
func (f *File) WriteFasta(w io.Writer, region Region, width int) error {
	seq, err := f.Fetch(region)
	if err != nil {
		return err
	}
	rec, _ := f.index.Get(region.Name)
	if width <= 0 {
		width = rec.LineBases
	}
	if width <= 0 {
		width = len(seq) // empty or unfolded sequence
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, ">%s\n", displayName(region, rec)); err != nil {
		return err
	}
	for len(seq) > 0 {
		n := min(len(seq), width)
		if _, err := bw.Write(seq[:n]); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		seq = seq[n:]
	}
	return bw.Flush()
}

// displayName annotates the header with the requested range, unless the
// region spans the whole sequence.
func displayName(region Region, rec SequenceRecord) string {
	if region.Start == 0 && (region.End == EndOfSequence || region.End >= rec.Length) {
		return region.Name
	}
	end := min(region.End, rec.Length)
	return fmt.Sprintf("%s:%d-%d", region.Name, region.Start+1, end)
}
