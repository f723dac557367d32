package bamprovider_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/fragnorm/encoding/bamprovider"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestData(t *testing.T) (*sam.Header, []*sam.Record) {
	chr1, err := sam.NewReference("chr1", "", "", 10000, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{chr1})
	require.NoError(t, err)

	var recs []*sam.Record
	for i, name := range []string{"read1", "read1", "read2", "read2", "read3"} {
		rec, err := sam.NewRecord(name,
			chr1,              /*ref*/
			chr1,              /*materef*/
			100*i /*pos*/, 0, /*matepos*/
			150, /*templen*/
			60,  /*mapq*/
			[]sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 4)}, /*cigar*/
			[]byte("ACGT"),
			[]byte{30, 31, 32, 33}, /*qual*/
			nil /*aux*/)
		require.NoError(t, err)
		rec.Flags = sam.Paired | sam.Read1
		if i%2 == 1 {
			rec.Flags = sam.Paired | sam.Read2
		}
		recs = append(recs, rec)
	}
	return header, recs
}

func writeBAM(t *testing.T, path string, header *sam.Header, recs []*sam.Record) {
	out, err := os.Create(path)
	require.NoError(t, err)
	w, err := bam.NewWriter(out, header, 1)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())
}

func writeSAM(t *testing.T, path string, header *sam.Header, recs []*sam.Record) {
	out, err := os.Create(path)
	require.NoError(t, err)
	w, err := sam.NewWriter(out, header, sam.FlagDecimal)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, out.Close())
}

func doRead(t *testing.T, p bamprovider.Provider) []string {
	var names []string
	// Repeat the scan to verify that every iterator starts from the first record.
	for i := 0; i < 3; i++ {
		names = []string{}
		iter := p.NewIterator()
		for iter.Scan() {
			names = append(names, iter.Record().Name)
		}
		require.NoError(t, iter.Err())
		require.NoError(t, iter.Close())
	}
	require.NoError(t, p.Close())
	return names
}

func TestBAMProvider(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	header, recs := newTestData(t)
	path := filepath.Join(tmpDir, "test.bam")
	writeBAM(t, path, header, recs)

	p := bamprovider.NewProvider(path)
	_, ok := p.(*bamprovider.BAMProvider)
	require.True(t, ok)
	h, err := p.GetHeader()
	require.NoError(t, err)
	require.Equal(t, 1, len(h.Refs()))
	assert.Equal(t, "chr1", h.Refs()[0].Name())
	assert.Equal(t, []string{"read1", "read1", "read2", "read2", "read3"}, doRead(t, p))
}

func TestSAMProvider(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	header, recs := newTestData(t)
	path := filepath.Join(tmpDir, "test.sam")
	writeSAM(t, path, header, recs)

	p := bamprovider.NewProvider(path)
	_, ok := p.(*bamprovider.SAMProvider)
	require.True(t, ok)
	iter := p.NewIterator()
	var tlens []int
	var flags []sam.Flags
	for iter.Scan() {
		tlens = append(tlens, iter.Record().TempLen)
		flags = append(flags, iter.Record().Flags)
	}
	require.NoError(t, iter.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, []int{150, 150, 150, 150, 150}, tlens)
	assert.Equal(t, sam.Paired|sam.Read1, flags[0])
	assert.Equal(t, sam.Paired|sam.Read2, flags[1])
}

func TestMissingFile(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	p := bamprovider.NewProvider(filepath.Join(tmpDir, "nonexistent.bam"))
	_, err := p.GetHeader()
	require.Error(t, err)

	iter := p.NewIterator()
	assert.False(t, iter.Scan())
	assert.Error(t, iter.Err())
	assert.Error(t, iter.Close())
	assert.Error(t, p.Close())
}

func TestGuessFileType(t *testing.T) {
	assert.Equal(t, bamprovider.BAM, bamprovider.GuessFileType("/tmp/foo.bam"))
	assert.Equal(t, bamprovider.SAM, bamprovider.GuessFileType("s3://bucket/foo.sam"))
	assert.Equal(t, bamprovider.Unknown, bamprovider.GuessFileType("/tmp/foo.cram"))
	assert.Equal(t, bamprovider.BAM, bamprovider.ParseFileType("bam"))
	assert.Equal(t, bamprovider.Unknown, bamprovider.ParseFileType("pam"))
	assert.Equal(t, "sam", bamprovider.SAM.String())
}

func TestFakeProvider(t *testing.T) {
	header, recs := newTestData(t)
	p := bamprovider.NewFakeProvider(header, recs)
	assert.Equal(t, []string{"read1", "read1", "read2", "read2", "read3"}, doRead(t, p))
	assert.Equal(t, 3, bamprovider.NumIterators(p))

	// Mutating a returned record must not alter the provider's data.
	p = bamprovider.NewFakeProvider(header, recs)
	iter := p.NewIterator()
	require.True(t, iter.Scan())
	iter.Record().Name = "mutated"
	require.NoError(t, iter.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, "read1", recs[0].Name)
}

func TestErrorProvider(t *testing.T) {
	want := errors.New("cannot open")
	p := bamprovider.NewErrorProvider(want)
	_, err := p.GetHeader()
	assert.Equal(t, want, err)
	iter := p.NewIterator()
	assert.False(t, iter.Scan())
	assert.Equal(t, want, iter.Close())
	assert.Equal(t, -1, bamprovider.NumIterators(p))
}
