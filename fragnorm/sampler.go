package fragnorm

import (
	"hash"
	"math/rand"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/fragnorm/encoding/bamprovider"
	"github.com/grailbio/hts/sam"
)

// RetainedNameSet holds the names of the read pairs that won their trial.
type RetainedNameSet map[string]struct{}

// Contains reports whether name is in the set.
func (s RetainedNameSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Sample is the outcome of one collection's sampling pass.
type Sample struct {
	// Names is the set of retained pair names.
	Names RetainedNameSet
	// Trials is the number of first mates examined.
	Trials int64
	// Fingerprint is a hash of the retained names in the order they were
	// drawn. Two runs with the same seed and inputs produce the same value.
	Fingerprint uint64
}

// SamplePairs scans the provider and runs one Bernoulli trial per first mate:
// a value drawn uniformly from [0, 1) that is <= the probability of the
// mate's fragment size retains the pair. Second mates are not trialed.
// Draws are taken from random in record order, so a fixed seed gives a fixed
// result.
func SamplePairs(provider bamprovider.Provider, path string, probs ProbabilityMap, random *rand.Rand) (*Sample, error) {
	s := &Sample{Names: RetainedNameSet{}}
	var fp hash.Hash64 = seahash.New()
	iter := provider.NewIterator()
	for iter.Scan() {
		r := iter.Record()
		if !isFirstMate(r) {
			sam.PutInFreePool(r)
			continue
		}
		p, err := probs.Lookup(FragmentSize(r))
		if err != nil {
			_ = iter.Close()
			return nil, withPath(err, path)
		}
		s.Trials++
		if s.Trials%progressInterval == 0 {
			log.Printf("%s: %d coin flips, %d pairs kept", path, s.Trials, len(s.Names))
		}
		if random.Float64() <= p {
			s.Names[r.Name] = struct{}{}
			fp.Write([]byte(r.Name)) // nolint: errcheck
			fp.Write([]byte{'\n'})   // nolint: errcheck
		}
		sam.PutInFreePool(r)
	}
	if err := iter.Close(); err != nil {
		return nil, &Error{Path: path, Stage: StageSample, Kind: SourceUnreadable,
			Err: errors.E(err, "scan for coin flips")}
	}
	s.Fingerprint = fp.Sum64()
	return s, nil
}
