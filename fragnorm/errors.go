package fragnorm

import (
	"fmt"
)

// Kind classifies failures of the normalization pipeline.
type Kind int

const (
	// SourceUnreadable means an input collection could not be opened or read.
	SourceUnreadable Kind = iota + 1
	// SinkUnwritable means an output collection could not be created or
	// written.
	SinkUnwritable
	// DegenerateProbability means a probability was requested for a fragment
	// size that has no entry, or whose own count is zero. It indicates an
	// internal inconsistency between the histogram and the scanned data.
	DegenerateProbability
	// EmptyReferenceTotal means the minimum-count profile sums to zero, so no
	// control probabilities can be derived from it.
	EmptyReferenceTotal
	// NotPaired means an input does not contain both first and second mates.
	NotPaired
	// InvalidConfig means the options are unusable.
	InvalidConfig
)

func (k Kind) String() string {
	switch k {
	case SourceUnreadable:
		return "source unreadable"
	case SinkUnwritable:
		return "sink unwritable"
	case DegenerateProbability:
		return "degenerate probability"
	case EmptyReferenceTotal:
		return "empty reference total"
	case NotPaired:
		return "not paired-end"
	case InvalidConfig:
		return "invalid configuration"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Stage identifies the step of a collection's pipeline that failed.
type Stage int

const (
	StageConfig Stage = iota
	StagePairedCheck
	StageHistogram
	StageProbability
	StageSample
	StageWrite
)

func (s Stage) String() string {
	switch s {
	case StageConfig:
		return "config"
	case StagePairedCheck:
		return "paired-check"
	case StageHistogram:
		return "histogram"
	case StageProbability:
		return "probability"
	case StageSample:
		return "sample"
	case StageWrite:
		return "write"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Error describes a failure of one collection's pipeline, or of the run as a
// whole when Path is empty.
type Error struct {
	Path  string
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s stage: %s: %v", e.Path, e.Stage, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err, or any error it wraps, is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == k {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// withPath returns err with its Path set, if err is an *Error without one.
func withPath(err error, path string) error {
	if e, ok := err.(*Error); ok && e.Path == "" {
		c := *e
		c.Path = path
		return &c
	}
	return err
}
