package bamprovider

import (
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// BAMProvider implements Provider for BAM files. The path is allowed to be an
// S3 URL, in which case the data will be read from S3. Otherwise the data will
// be read from the local filesystem.
type BAMProvider struct {
	// Path of the *.bam file. Must be nonempty.
	Path  string
	state streamState
}

// SAMProvider implements Provider for uncompressed SAM text files. Paths are
// resolved the same way as BAMProvider.
type SAMProvider struct {
	// Path of the *.sam file. Must be nonempty.
	Path  string
	state streamState
}

// recordReader is implemented by both sam.Reader and bam.Reader.
type recordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
}

type openFunc func(in io.Reader) (recordReader, error)

// openBAM and openSAM never return a typed nil inside a non-nil recordReader.
func openBAM(in io.Reader) (recordReader, error) {
	r, err := bam.NewReader(in, 1)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func openSAM(in io.Reader) (recordReader, error) {
	r, err := sam.NewReader(in)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetHeader implements the Provider interface.
func (b *BAMProvider) GetHeader() (*sam.Header, error) { return b.state.getHeader(b.Path, openBAM) }

// NewIterator implements the Provider interface.
func (b *BAMProvider) NewIterator() Iterator { return b.state.newIterator(b.Path, openBAM) }

// Close implements the Provider interface.
func (b *BAMProvider) Close() error { return b.state.close(b.Path) }

// GetHeader implements the Provider interface.
func (s *SAMProvider) GetHeader() (*sam.Header, error) { return s.state.getHeader(s.Path, openSAM) }

// NewIterator implements the Provider interface.
func (s *SAMProvider) NewIterator() Iterator { return s.state.newIterator(s.Path, openSAM) }

// Close implements the Provider interface.
func (s *SAMProvider) Close() error { return s.state.close(s.Path) }

// streamState is the bookkeeping shared by the file-backed providers.
type streamState struct {
	err errors.Once

	mu      sync.Mutex
	nActive int
	header  *sam.Header
}

type streamIterator struct {
	state  *streamState
	in     file.File
	reader recordReader

	active bool
	err    error
	next   *sam.Record
}

func (s *streamState) getHeader(path string, open openFunc) (*sam.Header, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.header != nil {
		return s.header, nil
	}

	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		s.err.Set(err)
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	reader, err := open(in.Reader(ctx))
	if err != nil {
		s.err.Set(err)
		return nil, err
	}
	if c, ok := reader.(io.Closer); ok {
		defer c.Close() // nolint: errcheck
	}
	s.header = reader.Header()
	return s.header, nil
}

func (s *streamState) close(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nActive > 0 {
		vlog.Fatalf("%s: %d iterators still active", path, s.nActive)
	}
	return s.err.Err()
}

// newIterator opens the file and creates a reader positioned at the first
// record. On error, returns an iterator with non-nil err field.
func (s *streamState) newIterator(path string, open openFunc) Iterator {
	s.mu.Lock()
	s.nActive++
	s.mu.Unlock()

	iter := &streamIterator{
		state:  s,
		active: true,
	}
	ctx := vcontext.Background()
	if iter.in, iter.err = file.Open(ctx, path); iter.err != nil {
		return iter
	}
	iter.reader, iter.err = open(iter.in.Reader(ctx))
	return iter
}

// Scan implements the Iterator interface.
func (i *streamIterator) Scan() bool {
	if !i.active {
		vlog.Fatal("Reusing iterator")
	}
	if i.err != nil {
		return false
	}
	i.next, i.err = i.reader.Read()
	return i.err == nil
}

// Record implements the Iterator interface.
func (i *streamIterator) Record() *sam.Record {
	return i.next
}

// Err implements the Iterator interface.
func (i *streamIterator) Err() error {
	if i.err == io.EOF {
		return nil
	}
	return i.err
}

// Close implements the Iterator interface.
func (i *streamIterator) Close() error {
	if !i.active {
		vlog.Fatal("Closing iterator twice")
	}
	i.active = false
	if c, ok := i.reader.(io.Closer); ok {
		if err := c.Close(); err != nil && i.Err() == nil {
			i.err = err
		}
	}
	i.reader = nil
	if i.in != nil {
		if err := i.in.Close(vcontext.Background()); err != nil && i.Err() == nil {
			i.err = err
		}
		i.in = nil
	}
	err := i.Err()
	i.state.err.Set(err)

	i.state.mu.Lock()
	i.state.nActive--
	if i.state.nActive < 0 {
		vlog.Fatalf("Negative active count")
	}
	i.state.mu.Unlock()
	return err
}
