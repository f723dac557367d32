package fragnorm

import (
	"context"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// Metrics summarizes one collection's run.
type Metrics struct {
	// PairsExamined is the number of first mates in the histogram.
	PairsExamined int64
	// PairsRetained is the number of pairs that won their coin flip.
	PairsRetained int64
	// RecordsExamined and RecordsWritten count records, not pairs, in the
	// writing pass.
	RecordsExamined int64
	RecordsWritten  int64
	// Fingerprint is the Sample fingerprint of the retained names.
	Fingerprint uint64
}

// RetainedFraction returns PairsRetained/PairsExamined, or 0 if no pairs were
// examined.
func (m Metrics) RetainedFraction() float64 {
	if m.PairsExamined == 0 {
		return 0
	}
	return float64(m.PairsRetained) / float64(m.PairsExamined)
}

func status(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}

// WriteMetrics writes one line per collection to path, in TSV format.
func WriteMetrics(ctx context.Context, path string, results []*Result) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	w.WriteString("#COLLECTION\tROLE\tOUTPUT\tPAIRS_EXAMINED\tPAIRS_RETAINED\tFRACTION_RETAINED\tRECORDS_EXAMINED\tRECORDS_WRITTEN\tFINGERPRINT\tSTATUS")
	if err = w.EndLine(); err != nil {
		return err
	}
	for _, r := range results {
		w.WriteString(r.Path)
		w.WriteString(r.Role.String())
		w.WriteString(r.OutputPath)
		w.WriteInt64(r.Metrics.PairsExamined)
		w.WriteInt64(r.Metrics.PairsRetained)
		w.WriteString(strconv.FormatFloat(r.Metrics.RetainedFraction(), 'f', 6, 64))
		w.WriteInt64(r.Metrics.RecordsExamined)
		w.WriteInt64(r.Metrics.RecordsWritten)
		w.WriteString(strconv.FormatUint(r.Metrics.Fingerprint, 16))
		w.WriteString(status(r.Err))
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WriteHistograms writes, for every collection and every fragment size in its
// histogram, the pair count, the profile count, and the acceptance
// probability, in TSV format. Probabilities that were not computed are
// written as "NA".
func WriteHistograms(ctx context.Context, path string, profile Profile, results []*Result) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	w.WriteString("#COLLECTION\tROLE\tFRAGMENT_SIZE\tCOUNT\tPROFILE\tPROBABILITY")
	if err = w.EndLine(); err != nil {
		return err
	}
	for _, r := range results {
		for _, size := range r.Histogram.Sizes() {
			w.WriteString(r.Path)
			w.WriteString(r.Role.String())
			w.WriteInt64(int64(size))
			w.WriteInt64(r.Histogram[size])
			w.WriteInt64(profile[size])
			if p, ok := r.Probabilities[size]; ok {
				w.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
			} else {
				w.WriteString("NA")
			}
			if err = w.EndLine(); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}
