package fragnorm

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// ProbabilityMap maps a fragment size to the probability that a read pair of
// that size is kept.
type ProbabilityMap map[int]float64

// Lookup returns the acceptance probability for size. A size without an entry
// is an *Error of kind DegenerateProbability: every size that can be drawn
// against was counted in the histogram the map was derived from.
func (m ProbabilityMap) Lookup(size int) (float64, error) {
	p, ok := m[size]
	if !ok {
		return 0, &Error{Stage: StageSample, Kind: DegenerateProbability,
			Err: errors.E(errors.Integrity, fmt.Sprintf("no acceptance probability for fragment size %d", size))}
	}
	return p, nil
}

func degenerateCount(size int, n int64) error {
	return &Error{Stage: StageProbability, Kind: DegenerateProbability,
		Err: errors.E(errors.Integrity, fmt.Sprintf("fragment size %d has count %d", size, n))}
}

// RegularProbabilities computes the acceptance probabilities of a regular
// collection: profile[size] / hist[size] for every size in hist. Since the
// profile holds minimums, every probability is in [0, 1]. A size absent from
// the profile gets probability zero.
func RegularProbabilities(hist Histogram, profile Profile) (ProbabilityMap, error) {
	probs := make(ProbabilityMap, len(hist))
	for size, n := range hist {
		if n <= 0 {
			return nil, degenerateCount(size, n)
		}
		probs[size] = float64(profile[size]) / float64(n)
	}
	return probs, nil
}

// ControlPlan is the proportional subsampling plan for a control collection.
// The control keeps the shape of the reference profile while giving up as
// few of its own pairs as the shape allows.
type ControlPlan struct {
	// TotalReference is the sum of the profile counts.
	TotalReference int64
	// TotalControl is the number of pairs in the control histogram.
	TotalControl int64
	// MinTotalReads is the number of control pairs the plan keeps in
	// expectation, before per-size rounding.
	MinTotalReads int64
	// BindingSize is the fragment size whose control count limits
	// MinTotalReads, or -1 if MinTotalReads equals TotalControl.
	BindingSize int
	// Targets maps each profile size to its expected number of kept control
	// pairs.
	Targets map[int]int64

	control Histogram
}

// PlanControl derives the control plan from the control histogram and the
// reference profile.
//
// Each profile size has a share profile[size]/TotalReference of the reference.
// A control size with count c and positive share s could support at most
// floor(c/s) control pairs in total. MinTotalReads is the smallest of these
// bounds and TotalControl, and each size targets floor(s*MinTotalReads) pairs.
// Both divisions are carried out exactly in integers.
func PlanControl(control Histogram, profile Profile) (*ControlPlan, error) {
	plan := &ControlPlan{
		TotalReference: profile.Total(),
		TotalControl:   control.Total(),
		BindingSize:    -1,
		Targets:        make(map[int]int64, len(profile)),
		control:        control,
	}
	if plan.TotalReference == 0 {
		return nil, &Error{Stage: StageProbability, Kind: EmptyReferenceTotal,
			Err: errors.E(errors.Precondition, "the minimum-count profile sums to zero")}
	}
	plan.MinTotalReads = plan.TotalControl
	for _, size := range control.Sizes() {
		ref := profile[size]
		if ref == 0 {
			// A zero share imposes no constraint.
			continue
		}
		hypothetical := control[size] * plan.TotalReference / ref
		if hypothetical <= 0 {
			continue
		}
		if hypothetical < plan.MinTotalReads {
			plan.MinTotalReads = hypothetical
			plan.BindingSize = size
		}
	}
	for size, ref := range profile {
		plan.Targets[size] = ref * plan.MinTotalReads / plan.TotalReference
	}
	return plan, nil
}

// Probabilities returns target/count for every size in the control
// histogram. Control sizes without a target get probability zero.
func (c *ControlPlan) Probabilities() (ProbabilityMap, error) {
	probs := make(ProbabilityMap, len(c.control))
	for size, n := range c.control {
		if n <= 0 {
			return nil, degenerateCount(size, n)
		}
		probs[size] = float64(c.Targets[size]) / float64(n)
	}
	return probs, nil
}

// ExpectedRetained returns the expected number of control pairs kept by the
// plan, summed over the sizes present in the control.
func (c *ControlPlan) ExpectedRetained() int64 {
	var n int64
	for size := range c.control {
		n += c.Targets[size]
	}
	return n
}

// ControlProbabilities computes the acceptance probabilities of the control
// collection. See PlanControl.
func ControlProbabilities(control Histogram, profile Profile) (ProbabilityMap, error) {
	plan, err := PlanControl(control, profile)
	if err != nil {
		return nil, err
	}
	return plan.Probabilities()
}
