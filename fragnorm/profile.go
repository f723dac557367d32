package fragnorm

import (
	"github.com/grailbio/base/errors"
)

// Profile is the reference fragment-size distribution every collection is
// normalized toward. For each fragment size it holds the smallest pair count
// among the regular collections, or zero if the size is missing from any
// regular collection, or from the control when one is configured.
type Profile map[int]int64

// Total returns the sum of the profile counts.
func (p Profile) Total() int64 {
	var n int64
	for _, c := range p {
		n += c
	}
	return n
}

// Sizes returns the fragment sizes in p, in increasing order.
func (p Profile) Sizes() []int {
	return sortedKeys(p)
}

// NewMinimumCountProfile computes the minimum-count profile of the regular
// histograms. The profile has an entry for every size found in any regular
// histogram. A size gets a zero count unless every regular histogram contains
// it; when control is non-nil, the size must also be present in control.
//
// A nil control means no control collection is configured. An empty but
// non-nil control zeroes the whole profile.
func NewMinimumCountProfile(regular []Histogram, control Histogram) (Profile, error) {
	if len(regular) == 0 {
		return nil, &Error{Stage: StageProbability, Kind: InvalidConfig,
			Err: errors.E(errors.Invalid, "no regular collections to build the profile from")}
	}
	profile := Profile{}
	for _, hist := range regular {
		for size, n := range hist {
			if cur, ok := profile[size]; !ok || n < cur {
				profile[size] = n
			}
		}
	}
	for size := range profile {
		for _, hist := range regular {
			if _, ok := hist[size]; !ok {
				profile[size] = 0
				break
			}
		}
		if control != nil {
			if _, ok := control[size]; !ok {
				profile[size] = 0
			}
		}
	}
	return profile, nil
}
