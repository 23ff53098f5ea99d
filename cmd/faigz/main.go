// Command faigz indexes FASTA files and extracts subsequences, like
// samtools faidx. Files may be plain or BGZF-compressed; sidecar indexes
// (.fai, .gzi) are built on first use and reused afterwards.
//
// Usage:
//
//	faigz [flags] ref.fa[.gz] [region ...]
//
// With no regions, faigz builds or refreshes the indexes and lists the
// sequences. Regions use the samtools convention: "chr1" for a whole
// sequence, "chr1:100-200" for a 1-based inclusive range.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/lumenbio/faigz"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("faigz: ")

	var (
		out         = flag.String("o", "", "write output to file instead of stdout")
		width       = flag.Int("w", 0, "fold output at this many bases per line (0 = input width)")
		cacheBlocks = flag.Int("c", 0, "decompressed block cache capacity in blocks (0 = default)")
		noWrite     = flag.Bool("n", false, "do not persist built indexes")
	)
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: faigz [flags] ref.fa[.gz] [region ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	var opts []faigz.Option
	if *cacheBlocks > 0 {
		opts = append(opts, faigz.WithCacheBlocks(*cacheBlocks))
	}
	if *noWrite {
		opts = append(opts, faigz.WithoutIndexWrite())
	}

	f, err := faigz.Open(flag.Arg(0), opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	w := os.Stdout
	if *out != "" {
		w, err = os.Create(*out)
		if err != nil {
			log.Fatal(err)
		}
		defer w.Close()
	}

	regions := flag.Args()[1:]
	if len(regions) == 0 {
		for _, name := range f.Names() {
			length, _ := f.Len(name)
			fmt.Fprintf(w, "%s\t%d\n", name, length)
		}
		return
	}

	for _, arg := range regions {
		region, err := f.ResolveRegion(arg)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.WriteFasta(w, region, *width); err != nil {
			log.Fatal(err)
		}
	}
}
