package fragnorm

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/fragnorm/encoding/bamprovider"
	"github.com/grailbio/fragnorm/encoding/bamwriter"
)

// DefaultSeed is the random seed used when none is given.
const DefaultSeed = 32413

// Opts for fragment-size normalization.
type Opts struct {
	// BamFiles lists the regular collections, in processing order.
	BamFiles []string
	// ControlBam is the optional control collection. It is normalized
	// proportionally and processed after the regular collections.
	ControlBam string
	// OutputDir receives one <name>.normalized.<ext> file per input, where
	// <name> is the full base name of the input.
	OutputDir string
	// Seed seeds the random source shared by all collections.
	Seed int64
	// Compression applies to BAM outputs.
	Compression bamwriter.CompressionMode
	// Parallelism bounds the number of histogram scans that run at once.
	// Sampling and writing are always sequential.
	Parallelism int
	// MetricsFile, if set, receives a per-collection summary TSV.
	MetricsFile string
	// HistogramFile, if set, receives the per-collection fragment size
	// histograms, the reference profile, and the acceptance probabilities.
	HistogramFile string
	// SkipPairedCheck disables the paired-end check that runs before the
	// histogram pass.
	SkipPairedCheck bool
}

func invalidConfig(format string, args ...interface{}) error {
	return &Error{Stage: StageConfig, Kind: InvalidConfig,
		Err: errors.E(errors.Invalid, fmt.Sprintf(format, args...))}
}

func validate(opts *Opts) error {
	if len(opts.BamFiles) == 0 {
		return invalidConfig("you must specify at least one bam file with --bam")
	}
	if opts.OutputDir == "" {
		return invalidConfig("you must specify an output directory with --out-dir")
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	seen := map[string]string{}
	inputs := append(append([]string{}, opts.BamFiles...), opts.ControlBam)
	for i, path := range inputs {
		if path == "" {
			if i < len(opts.BamFiles) {
				return invalidConfig("empty bam file name")
			}
			continue
		}
		out := OutputPath(opts.OutputDir, path)
		if prev, ok := seen[out]; ok {
			if prev == path {
				return invalidConfig("%s is listed more than once", path)
			}
			return invalidConfig("%s and %s would both be written to %s", prev, path, out)
		}
		seen[out] = path
	}
	return nil
}

// OutputPath returns the path of the normalized copy of input in outputDir:
// <outputDir>/<base>.normalized.<ext>, where <base> is the full base name of
// input and <ext> is "sam" for SAM inputs and "bam" otherwise. Inputs of
// unknown type are read and written as BAM.
func OutputPath(outputDir, input string) string {
	base := filepath.Base(input)
	ft := bamprovider.ParseFileType(strings.TrimPrefix(filepath.Ext(base), "."))
	if ft == bamprovider.Unknown {
		ft = bamprovider.BAM
	}
	return file.Join(outputDir, base+".normalized."+ft.String())
}

// checkOutputDir verifies that files can be created in dir.
func checkOutputDir(ctx context.Context, dir string) error {
	probe := file.Join(dir, ".bio-fragnorm.probe")
	f, err := file.Create(ctx, probe)
	if err != nil {
		return &Error{Stage: StageConfig, Kind: SinkUnwritable,
			Err: errors.E(err, "output directory cannot be written to:", dir)}
	}
	if err := f.Close(ctx); err != nil {
		return &Error{Stage: StageConfig, Kind: SinkUnwritable,
			Err: errors.E(err, "output directory cannot be written to:", dir)}
	}
	return file.Remove(ctx, probe)
}
