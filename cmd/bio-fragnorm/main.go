package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/fragnorm/encoding/bamwriter"
	"github.com/grailbio/fragnorm/fragnorm"
)

// stringList is a flag.Value that collects every occurrence of a repeated
// flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	bamFiles        stringList
	controlBam      = flag.String("control-bam", "", "Optional control BAM, subsampled proportionally to the shared fragment size distribution.")
	outDir          = flag.String("out-dir", "", "Directory that receives <input base name>.normalized.<bam|sam> for every input.")
	seed            = flag.Int64("seed", fragnorm.DefaultSeed, "Seed for the pair selection coin flips.")
	uncompressed    = flag.Bool("uncompressed", false, "Write BAM outputs without compression.")
	parallelism     = flag.Int("parallelism", 1, "Number of inputs whose histograms are built concurrently.")
	metricsFile     = flag.String("metrics", "", "If set, write a per-input summary TSV to this path.")
	histogramFile   = flag.String("histogram", "", "If set, write the fragment size histograms and acceptance probabilities to this TSV path.")
	skipPairedCheck = flag.Bool("skip-paired-check", false, "Do not check that every input holds paired-end reads.")
)

func init() {
	flag.Var(&bamFiles, "bam", "BAM or SAM file to normalize. May be repeated.")
}

func optsFromFlags(args []string) fragnorm.Opts {
	opts := fragnorm.Opts{
		BamFiles:        append(append([]string{}, bamFiles...), args...),
		ControlBam:      *controlBam,
		OutputDir:       *outDir,
		Seed:            *seed,
		Parallelism:     *parallelism,
		MetricsFile:     *metricsFile,
		HistogramFile:   *histogramFile,
		SkipPairedCheck: *skipPairedCheck,
	}
	if *uncompressed {
		opts.Compression = bamwriter.Uncompressed
	}
	return opts
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s --out-dir <dir> [--control-bam <control.bam>] [--bam] <a.bam> [--bam] <b.bam>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	shutdown := grail.Init()
	defer shutdown()

	opts := optsFromFlags(flag.Args())
	if len(opts.BamFiles) == 0 || opts.OutputDir == "" {
		flag.Usage()
		os.Exit(1)
	}
	results, err := fragnorm.Normalize(vcontext.Background(), opts)
	for _, r := range results {
		if r.Err != nil {
			log.Printf("%s (%s): FAILED: %v", r.Path, r.Role, r.Err)
			continue
		}
		log.Printf("%s (%s): kept %d of %d pairs (%.2f%%), wrote %d records to %s",
			r.Path, r.Role, r.Metrics.PairsRetained, r.Metrics.PairsExamined,
			100*r.Metrics.RetainedFraction(), r.Metrics.RecordsWritten, r.OutputPath)
	}
	if err != nil {
		log.Fatalf("bio-fragnorm: %v", err)
	}
}
