package fai

import (
	"bytes"
	"fmt"
)

// Builder constructs an Index from a single forward pass over FASTA text.
//
// Builder is an io.Writer consuming the logical uncompressed byte stream, so
// the same builder serves plain files (io.Copy) and BGZF sources (fed one
// decompressed block at a time). Call Finish after the last Write.
type Builder struct {
	ix       *Index
	buf      []byte
	off      int64 // uncompressed offset of buf[0]
	cur      *pendingRecord
	err      error
	finished bool
}

type pendingRecord struct {
	rec       Record
	haveWidth bool
	// short marks that a line narrower than LineBases has been seen.
	// Only the final line of a sequence may be short.
	short bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{ix: &Index{}}
}

// Write consumes the next chunk of uncompressed FASTA bytes.
func (b *Builder) Write(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	if b.finished {
		b.err = fmt.Errorf("%w: write after Finish", ErrMalformed)
		return 0, b.err
	}
	b.buf = append(b.buf, p...)
	for {
		i := bytes.IndexByte(b.buf, '\n')
		if i < 0 {
			break
		}
		line := b.buf[:i+1]
		if err := b.handleLine(line, terminatorLen(line)); err != nil {
			b.err = err
			return 0, err
		}
		b.off += int64(len(line))
		b.buf = b.buf[i+1:]
	}
	return len(p), nil
}

// Finish processes any final unterminated line and returns the completed
// index. A missing trailing terminator is only legal here, on the last line
// of the stream.
func (b *Builder) Finish() (*Index, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.finished {
		return b.ix, nil
	}
	if len(b.buf) > 0 {
		if err := b.handleLine(b.buf, 0); err != nil {
			b.err = err
			return nil, err
		}
		b.off += int64(len(b.buf))
		b.buf = nil
	}
	if err := b.closeRecord(); err != nil {
		b.err = err
		return nil, err
	}
	b.finished = true
	return b.ix, nil
}

// terminatorLen returns the length of the line terminator: 2 for \r\n,
// 1 for \n. line must end in \n.
func terminatorLen(line []byte) int {
	if len(line) >= 2 && line[len(line)-2] == '\r' {
		return 2
	}
	return 1
}

// handleLine processes one line. line includes its terminator; term is the
// terminator byte count, 0 for the stream's final unterminated line.
func (b *Builder) handleLine(line []byte, term int) error {
	bases := len(line) - term
	switch {
	case bases > 0 && line[0] == '>':
		return b.openRecord(line[1:bases], len(line))
	case b.cur == nil:
		if bases == 0 {
			return nil // blank line outside any record
		}
		return fmt.Errorf("%w: sequence data before first header", ErrMalformed)
	default:
		return b.sequenceLine(bases, len(line), term)
	}
}

// openRecord closes any current record and starts a new one. headerLen is
// the full header line length including its terminator; b.off still points
// at the header start, so the data offset is their sum.
func (b *Builder) openRecord(header []byte, headerLen int) error {
	if err := b.closeRecord(); err != nil {
		return err
	}
	name := header
	if i := bytes.IndexAny(header, " \t"); i >= 0 {
		name = header[:i]
	}
	if len(name) == 0 {
		return fmt.Errorf("%w: header with empty sequence name", ErrMalformed)
	}
	b.cur = &pendingRecord{rec: Record{
		Name:   string(name),
		Offset: b.off + int64(headerLen),
	}}
	return nil
}

func (b *Builder) sequenceLine(bases, total, term int) error {
	cur := b.cur
	if bases > 0 && cur.short {
		return fmt.Errorf("%w: sequence %q", ErrInconsistentLineWidth, cur.rec.Name)
	}
	if !cur.haveWidth {
		if bases == 0 {
			cur.short = true
			return nil
		}
		cur.rec.LineBases = bases
		cur.rec.LineBytes = total
		cur.haveWidth = true
	} else {
		switch {
		case bases > cur.rec.LineBases:
			return fmt.Errorf("%w: sequence %q", ErrInconsistentLineWidth, cur.rec.Name)
		case bases == cur.rec.LineBases:
			if total != cur.rec.LineBytes && term != 0 {
				return fmt.Errorf("%w: sequence %q has mixed line terminators",
					ErrInconsistentLineWidth, cur.rec.Name)
			}
		default:
			cur.short = true
		}
	}
	cur.rec.Length += int64(bases)
	return nil
}

func (b *Builder) closeRecord() error {
	if b.cur == nil {
		return nil
	}
	rec := b.cur.rec
	b.cur = nil
	return b.ix.add(rec)
}
