package bamprovider

import (
	"github.com/grailbio/hts/sam"
)

type errorIterator struct {
	err error
}

func (i *errorIterator) Scan() bool          { return false }
func (i *errorIterator) Record() *sam.Record { panic("shall not be called") }
func (i *errorIterator) Err() error          { return i.err }
func (i *errorIterator) Close() error        { return i.err }

// NewErrorIterator creates an Iterator that yields no record and returns "err"
// in Err and Close.
func NewErrorIterator(err error) Iterator {
	return &errorIterator{err: err}
}

// errorProvider is a Provider whose file cannot be opened.
type errorProvider struct {
	err error
}

func (p *errorProvider) GetHeader() (*sam.Header, error) { return nil, p.err }
func (p *errorProvider) NewIterator() Iterator           { return NewErrorIterator(p.err) }
func (p *errorProvider) Close() error                    { return p.err }

// NewErrorProvider creates a Provider that fails every operation with "err".
func NewErrorProvider(err error) Provider {
	return &errorProvider{err: err}
}
