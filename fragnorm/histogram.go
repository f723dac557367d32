package fragnorm

import (
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/fragnorm/encoding/bamprovider"
	"github.com/grailbio/hts/sam"
)

// progressInterval is the number of records between progress log lines.
const progressInterval = 10000000

// Histogram maps a fragment size to the number of read pairs observed at that
// size. Pairs are counted once, through their first mate.
type Histogram map[int]int64

// FragmentSize returns the absolute insert size of r. It is 0 when the mate
// is unmapped.
func FragmentSize(r *sam.Record) int {
	if r.TempLen < 0 {
		return -r.TempLen
	}
	return r.TempLen
}

func isFirstMate(r *sam.Record) bool {
	return r.Flags&sam.Read1 != 0
}

// Total returns the number of pairs in the histogram.
func (h Histogram) Total() int64 {
	var n int64
	for _, c := range h {
		n += c
	}
	return n
}

// Sizes returns the fragment sizes in h, in increasing order.
func (h Histogram) Sizes() []int {
	return sortedKeys(h)
}

func sortedKeys(m map[int]int64) []int {
	sizes := make([]int, 0, len(m))
	for size := range m {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	return sizes
}

// BuildHistogram scans every record in the provider once and counts first
// mates by fragment size. Second mates share their first mate's insert size
// and are not counted. "path" is used only for messages.
//
// On a read error no histogram is returned; the error is an *Error of kind
// SourceUnreadable.
func BuildHistogram(provider bamprovider.Provider, path string) (Histogram, error) {
	hist := Histogram{}
	iter := provider.NewIterator()
	var nRecs int64
	for iter.Scan() {
		nRecs++
		if nRecs%progressInterval == 0 {
			log.Printf("%s: read %d records for the fragment size histogram", path, nRecs)
		}
		r := iter.Record()
		if isFirstMate(r) {
			hist[FragmentSize(r)]++
		}
		sam.PutInFreePool(r)
	}
	if err := iter.Close(); err != nil {
		return nil, &Error{Path: path, Stage: StageHistogram, Kind: SourceUnreadable,
			Err: errors.E(err, "scan for fragment sizes")}
	}
	log.Debug.Printf("%s: %d records, %d pairs, %d distinct fragment sizes", path, nRecs, hist.Total(), len(hist))
	return hist, nil
}
