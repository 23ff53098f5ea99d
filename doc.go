// Package faigz provides byte-exact random access to FASTA sequence data,
// plain or BGZF-compressed, with samtools-compatible sidecar indexes.
//
// A File is opened once and then serves concurrent region queries:
//
//	f, err := faigz.Open("genome.fa.gz")
//	if err != nil {
//		...
//	}
//	defer f.Close()
//
//	seq, err := f.Fetch(faigz.Region{Name: "chr1", Start: 999, End: 2000})
//
// Open probes for the .fai sequence index (and, for compressed input, the
// .gzi block index) next to the file, builds whatever is missing in a single
// pass, and persists the result so later opens are O(1). The indexes are
// byte-compatible with samtools faidx and bgzip -i, so either side can reuse
// the other's.
//
// Regions are 0-based half-open internally. The 1-based inclusive
// "name:start-end" convention used by samtools is accepted by ParseRegion,
// which is the single place the two conventions meet.
package faigz
