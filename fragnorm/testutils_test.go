package fragnorm

import (
	"fmt"
	"os"
	"testing"

	"github.com/grailbio/fragnorm/encoding/bamprovider"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
)

func newTestHeader(t *testing.T) (*sam.Header, *sam.Reference) {
	chr1, err := sam.NewReference("chr1", "", "", 1000000, nil, nil)
	assert.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1})
	assert.NoError(t, err)
	return header, chr1
}

// newPair returns the two mates of a pair whose fragment is "size" bases long.
func newPair(ref *sam.Reference, name string, pos, size int) (r1, r2 *sam.Record) {
	r1 = &sam.Record{
		Name:    name,
		Ref:     ref,
		Pos:     pos,
		MapQ:    60,
		Flags:   sam.Paired | sam.ProperPair | sam.Read1 | sam.MateReverse,
		MateRef: ref,
		MatePos: pos + size - 100,
		TempLen: size,
	}
	r2 = &sam.Record{
		Name:    name,
		Ref:     ref,
		Pos:     pos + size - 100,
		MapQ:    60,
		Flags:   sam.Paired | sam.ProperPair | sam.Read2 | sam.Reverse,
		MateRef: ref,
		MatePos: pos,
		TempLen: -size,
	}
	return r1, r2
}

// pairsFromHistogram returns hist[size] pairs for every size in hist. All
// first mates come before all second mates, so the mates of a pair are never
// adjacent. Names are "<prefix>:<size>:<index>".
func pairsFromHistogram(ref *sam.Reference, prefix string, hist Histogram) []*sam.Record {
	var firsts, seconds []*sam.Record
	pos := 1000
	for _, size := range hist.Sizes() {
		for i := int64(0); i < hist[size]; i++ {
			r1, r2 := newPair(ref, fmt.Sprintf("%s:%d:%d", prefix, size, i), pos, size)
			firsts = append(firsts, r1)
			seconds = append(seconds, r2)
			pos += 10
		}
	}
	return append(firsts, seconds...)
}

func newFakeCollection(t *testing.T, prefix string, hist Histogram) (bamprovider.Provider, []*sam.Record) {
	header, ref := newTestHeader(t)
	recs := pairsFromHistogram(ref, prefix, hist)
	return bamprovider.NewFakeProvider(header, recs), recs
}

func writeTestBAM(t *testing.T, path, prefix string, hist Histogram) {
	header, ref := newTestHeader(t)
	out, err := os.Create(path)
	assert.NoError(t, err)
	w, err := bam.NewWriter(out, header, 1)
	assert.NoError(t, err)
	for _, r := range pairsFromHistogram(ref, prefix, hist) {
		assert.NoError(t, w.Write(r))
	}
	assert.NoError(t, w.Close())
	assert.NoError(t, out.Close())
}

// readNames returns the names of the records in the alignment file at path,
// in file order.
func readNames(t *testing.T, path string) []string {
	p := bamprovider.NewProvider(path)
	iter := p.NewIterator()
	var names []string
	for iter.Scan() {
		r := iter.Record()
		names = append(names, r.Name)
		sam.PutInFreePool(r)
	}
	assert.NoError(t, iter.Close())
	assert.NoError(t, p.Close())
	return names
}

// countNames returns how many times each name occurs in names.
func countNames(names []string) map[string]int {
	m := map[string]int{}
	for _, n := range names {
		m[n]++
	}
	return m
}
