package bamprovider

import (
	"sync"

	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// fakeProvider is only for unittests. It yields the given records.
type fakeProvider struct {
	header *sam.Header
	recs   []*sam.Record

	mu      sync.Mutex
	nActive int
	nOpened int
}

type fakeIterator struct {
	provider *fakeProvider
	recs     []*sam.Record
	rec      *sam.Record
}

// NewFakeProvider creates a provider that returns "header" in response to a
// GetHeader() call, and recs, in order, from every iterator created by
// NewIterator.
func NewFakeProvider(header *sam.Header, recs []*sam.Record) Provider {
	return &fakeProvider{header: header, recs: recs}
}

// NumIterators reports how many iterators have been created on a provider
// returned by NewFakeProvider. It returns -1 for any other provider.
func NumIterators(p Provider) int {
	fp, ok := p.(*fakeProvider)
	if !ok {
		return -1
	}
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.nOpened
}

// GetHeader implements the Provider interface. It returns the header passed to
// the constructor.
func (b *fakeProvider) GetHeader() (*sam.Header, error) {
	return b.header, nil
}

// Close implements the Provider interface.
func (b *fakeProvider) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nActive > 0 {
		vlog.Fatalf("%d iterators still active", b.nActive)
	}
	return nil
}

// NewIterator implements the Provider interface.
func (b *fakeProvider) NewIterator() Iterator {
	b.mu.Lock()
	b.nActive++
	b.nOpened++
	b.mu.Unlock()
	return &fakeIterator{provider: b, recs: b.recs}
}

// Err implements the Iterator interface.
func (i *fakeIterator) Err() error {
	return nil
}

// Close implements the Iterator interface.
func (i *fakeIterator) Close() error {
	i.provider.mu.Lock()
	i.provider.nActive--
	i.provider.mu.Unlock()
	return nil
}

func (i *fakeIterator) Scan() bool {
	if len(i.recs) == 0 {
		return false
	}
	i.rec = i.recs[0]
	i.recs = i.recs[1:]
	return true
}

func (i *fakeIterator) Record() *sam.Record {
	// Return a copy so that the code under test cannot alter the
	// original test input data.
	copy := sam.GetFromFreePool()
	*copy = *i.rec
	return copy
}
