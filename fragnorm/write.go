package fragnorm

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/fragnorm/encoding/bamprovider"
	"github.com/grailbio/fragnorm/encoding/bamwriter"
	"github.com/grailbio/hts/sam"
)

// WriteStats counts the records seen and written by WriteRetained.
type WriteStats struct {
	RecordsExamined int64
	RecordsWritten  int64
}

// WriteRetained re-scans the provider and copies every record, first or
// second mate, whose name is in names to a new file at outPath. The output
// carries the source header and keeps the source record order.
//
// If the output cannot be created nothing is written and the error is an
// *Error of kind SinkUnwritable. A failure after the output was created
// removes the partial output.
func WriteRetained(ctx context.Context, provider bamprovider.Provider, path string,
	names RetainedNameSet, outPath string, opts bamwriter.Opts) (stats WriteStats, err error) {
	header, err := provider.GetHeader()
	if err != nil {
		return stats, &Error{Path: path, Stage: StageWrite, Kind: SourceUnreadable,
			Err: errors.E(err, "read header")}
	}
	if len(header.Refs()) == 0 {
		log.Error.Printf("%s: no reference data available, trying to carry on", path)
	}
	w, err := bamwriter.Create(ctx, outPath, header, opts)
	if err != nil {
		return stats, &Error{Path: path, Stage: StageWrite, Kind: SinkUnwritable, Err: err}
	}

	iter := provider.NewIterator()
	for iter.Scan() {
		r := iter.Record()
		stats.RecordsExamined++
		if stats.RecordsExamined%progressInterval == 0 {
			log.Printf("%s: read %d records, wrote %d to %s", path, stats.RecordsExamined, stats.RecordsWritten, outPath)
		}
		if names.Contains(r.Name) {
			if err = w.Write(r); err != nil {
				err = &Error{Path: path, Stage: StageWrite, Kind: SinkUnwritable, Err: err}
				break
			}
			stats.RecordsWritten++
		}
		sam.PutInFreePool(r)
	}
	if e := iter.Close(); e != nil && err == nil {
		err = &Error{Path: path, Stage: StageWrite, Kind: SourceUnreadable,
			Err: errors.E(e, "scan for output")}
	}
	if e := w.Close(); e != nil && err == nil {
		err = &Error{Path: path, Stage: StageWrite, Kind: SinkUnwritable, Err: e}
	}
	if err != nil {
		if e := file.Remove(ctx, outPath); e != nil {
			log.Error.Printf("remove partial output %s: %v", outPath, e)
		}
	}
	return stats, err
}
