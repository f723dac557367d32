package fragnorm

import (
	"context"
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/fragnorm/encoding/bamprovider"
	"github.com/grailbio/fragnorm/encoding/bamwriter"
)

// Role tells how a collection is normalized.
type Role int

const (
	// Regular collections are subsampled down to the minimum-count profile.
	Regular Role = iota
	// Control is subsampled proportionally to the profile's shape.
	Control
)

func (r Role) String() string {
	if r == Control {
		return "control"
	}
	return "regular"
}

// Collection is one input of a run.
type Collection struct {
	Path     string
	Role     Role
	Provider bamprovider.Provider
}

// Result is the outcome of one collection.
type Result struct {
	Path       string
	OutputPath string
	Role       Role
	// Histogram is the collection's fragment size histogram.
	Histogram Histogram
	// Probabilities maps each size in Histogram to its acceptance
	// probability. Nil if the collection failed before probabilities were
	// computed.
	Probabilities ProbabilityMap
	// Plan is set for the control collection.
	Plan    *ControlPlan
	Metrics Metrics
	// Err is the collection's failure, or nil. A failed collection leaves no
	// output file behind.
	Err error
}

// Normalizer runs fragment-size normalization over a set of collections.
type Normalizer struct {
	Opts        Opts
	Collections []Collection
	// Profile is the minimum-count profile. It is set by Run once all
	// histograms are built.
	Profile Profile
}

// Normalize validates opts, opens every input named in it, and normalizes
// them into opts.OutputDir. See Normalizer.Run.
func Normalize(ctx context.Context, opts Opts) ([]*Result, error) {
	if err := validate(&opts); err != nil {
		return nil, err
	}
	if err := checkOutputDir(ctx, opts.OutputDir); err != nil {
		return nil, err
	}
	n := &Normalizer{Opts: opts}
	for _, path := range opts.BamFiles {
		n.Collections = append(n.Collections, Collection{Path: path, Role: Regular, Provider: bamprovider.NewProvider(path)})
	}
	if opts.ControlBam != "" {
		n.Collections = append(n.Collections, Collection{Path: opts.ControlBam, Role: Control, Provider: bamprovider.NewProvider(opts.ControlBam)})
	}
	results, err := n.Run(ctx)
	for _, c := range n.Collections {
		if e := c.Provider.Close(); e != nil {
			log.Error.Printf("%s: close: %v", c.Path, e)
		}
	}
	return results, err
}

// Run normalizes n.Collections in three passes over each input:
//
// 1. Build the fragment size histogram of every collection. Up to
// Opts.Parallelism collections are scanned at once. Any failure here stops
// the run before anything is written, because the profile depends on every
// histogram.
//
// 2. Derive the acceptance probabilities of each collection from the
// minimum-count profile, and flip one coin per read pair.
//
// 3. Write every record of the retained pairs to Result.OutputPath.
//
// Passes 2 and 3 run one collection at a time: regular collections in order,
// then the control. All coin flips come from a single random source seeded
// with Opts.Seed, so the outputs depend on the seed, the inputs, and their
// order. A failure in pass 2 or 3 is recorded in that collection's Result
// and the remaining collections are still processed. Run returns the first
// such failure.
//
// Run does not close the providers.
func (n *Normalizer) Run(ctx context.Context) ([]*Result, error) {
	if n.Opts.Parallelism <= 0 {
		n.Opts.Parallelism = 1
	}
	cols, err := orderCollections(n.Collections)
	if err != nil {
		return nil, err
	}
	n.Collections = cols
	results := make([]*Result, len(cols))
	for i, c := range cols {
		results[i] = &Result{Path: c.Path, Role: c.Role, OutputPath: OutputPath(n.Opts.OutputDir, c.Path)}
	}

	if !n.Opts.SkipPairedCheck {
		for i, c := range cols {
			if err := CheckPaired(c.Provider, c.Path); err != nil {
				results[i].Err = err
				return results, err
			}
		}
	}

	log.Printf("performing first of three passes: building %d fragment size histograms", len(cols))
	err = traverse.Limit(n.Opts.Parallelism).Each(len(cols), func(i int) error {
		hist, err := BuildHistogram(cols[i].Provider, cols[i].Path)
		if err != nil {
			results[i].Err = err
			return err
		}
		results[i].Histogram = hist
		results[i].Metrics.PairsExamined = hist.Total()
		return nil
	})
	if err != nil {
		// Report the first failure in collection order.
		for _, r := range results {
			if r.Err != nil {
				return results, r.Err
			}
		}
		return results, err
	}

	var (
		regular []Histogram
		control Histogram
	)
	for _, r := range results {
		if r.Role == Control {
			control = r.Histogram
		} else {
			regular = append(regular, r.Histogram)
		}
	}
	if n.Profile, err = NewMinimumCountProfile(regular, control); err != nil {
		return results, err
	}
	log.Printf("minimum-count profile: %d fragment sizes, %d pairs", len(n.Profile), n.Profile.Total())

	random := rand.New(rand.NewSource(n.Opts.Seed))
	e := errors.Once{}
	for i, c := range cols {
		r := results[i]
		if r.Err = n.process(ctx, c, r, random); r.Err != nil {
			log.Error.Printf("%v", r.Err)
			e.Set(r.Err)
		}
	}
	if n.Opts.MetricsFile != "" {
		e.Set(WriteMetrics(ctx, n.Opts.MetricsFile, results))
	}
	if n.Opts.HistogramFile != "" {
		e.Set(WriteHistograms(ctx, n.Opts.HistogramFile, n.Profile, results))
	}
	return results, e.Err()
}

// process runs passes 2 and 3 for one collection.
func (n *Normalizer) process(ctx context.Context, c Collection, r *Result, random *rand.Rand) error {
	var err error
	if c.Role == Control {
		if r.Plan, err = PlanControl(r.Histogram, n.Profile); err == nil {
			log.Printf("%s: control keeps %d of %d pairs in expectation (reference total %d)",
				c.Path, r.Plan.ExpectedRetained(), r.Plan.TotalControl, r.Plan.TotalReference)
			r.Probabilities, err = r.Plan.Probabilities()
		}
	} else {
		r.Probabilities, err = RegularProbabilities(r.Histogram, n.Profile)
	}
	if err != nil {
		return withPath(err, c.Path)
	}

	log.Printf("%s: performing second of three passes: flipping coins", c.Path)
	sample, err := SamplePairs(c.Provider, c.Path, r.Probabilities, random)
	if err != nil {
		return err
	}
	r.Metrics.PairsRetained = int64(len(sample.Names))
	r.Metrics.Fingerprint = sample.Fingerprint

	log.Printf("%s: performing third of three passes: writing %d pairs to %s", c.Path, len(sample.Names), r.OutputPath)
	stats, err := WriteRetained(ctx, c.Provider, c.Path, sample.Names, r.OutputPath,
		bamwriter.Opts{Compression: n.Opts.Compression})
	r.Metrics.RecordsExamined = stats.RecordsExamined
	r.Metrics.RecordsWritten = stats.RecordsWritten
	return err
}

// orderCollections returns the regular collections in their given order
// followed by the control, if any.
func orderCollections(cols []Collection) ([]Collection, error) {
	var (
		ordered []Collection
		control []Collection
	)
	for _, c := range cols {
		if c.Role == Control {
			control = append(control, c)
		} else {
			ordered = append(ordered, c)
		}
	}
	if len(ordered) == 0 {
		return nil, invalidConfig("no regular collections")
	}
	if len(control) > 1 {
		return nil, invalidConfig("%d control collections, at most one is allowed", len(control))
	}
	return append(ordered, control...), nil
}
