// Package bamwriter creates BAM or SAM output files that carry the header of
// an existing alignment file.
package bamwriter

import (
	"context"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// CompressionMode selects how BAM output is compressed. It has no effect on
// SAM output.
type CompressionMode int

const (
	// Compressed writes BGZF blocks at the default gzip level.
	Compressed CompressionMode = iota
	// Uncompressed writes BGZF blocks with no compression.
	Uncompressed
)

func (m CompressionMode) level() int {
	if m == Uncompressed {
		return gzip.NoCompression
	}
	return gzip.DefaultCompression
}

// Opts defines options for Create.
type Opts struct {
	Compression CompressionMode
	// Parallelism is the number of BAM compression goroutines. Values <= 0
	// mean 1.
	Parallelism int
}

// Writer appends records to an alignment file.
type Writer interface {
	// Write appends one record.
	Write(r *sam.Record) error
	// Close flushes the output and closes the underlying file. It must be
	// called exactly once.
	Close() error
}

// recordWriter is implemented by both bam.Writer and sam.Writer.
type recordWriter interface {
	Write(r *sam.Record) error
}

type fileWriter struct {
	ctx  context.Context
	path string
	out  file.File
	w    recordWriter
}

// Create creates "path" and writes "header" to it. The output is SAM if the
// path ends in ".sam", BAM otherwise. Existing contents of "path", if any, are
// destroyed. If the header cannot be written, the partially created file is
// removed.
func Create(ctx context.Context, path string, header *sam.Header, opts Opts) (Writer, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	fw := &fileWriter{ctx: ctx, path: path, out: out}
	if strings.HasSuffix(path, ".sam") {
		var sw *sam.Writer
		if sw, err = sam.NewWriter(out.Writer(ctx), header, sam.FlagDecimal); err == nil {
			fw.w = sw
		}
	} else {
		wc := opts.Parallelism
		if wc <= 0 {
			wc = 1
		}
		var bw *bam.Writer
		if bw, err = bam.NewWriterLevel(out.Writer(ctx), header, opts.Compression.level(), wc); err == nil {
			fw.w = bw
		}
	}
	if err != nil {
		_ = out.Close(ctx)
		_ = file.Remove(ctx, path)
		return nil, errors.Wrapf(err, "write header to %s", path)
	}
	return fw, nil
}

// Write implements the Writer interface.
func (w *fileWriter) Write(r *sam.Record) error {
	if err := w.w.Write(r); err != nil {
		return errors.Wrapf(err, "write record %s to %s", r.Name, w.path)
	}
	return nil
}

// Close implements the Writer interface.
func (w *fileWriter) Close() error {
	var err error
	if bw, ok := w.w.(*bam.Writer); ok {
		err = bw.Close()
	}
	if e := w.out.Close(w.ctx); e != nil && err == nil {
		err = e
	}
	return errors.Wrapf(err, "close %s", w.path)
}
