package fragnorm

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/fragnorm/encoding/bamprovider"
	"github.com/grailbio/hts/sam"
)

// CheckPaired verifies that the provider holds paired-end data: it scans until
// it has seen at least one first mate and one other record. Single-ended input
// is an *Error of kind NotPaired.
func CheckPaired(provider bamprovider.Provider, path string) error {
	var first, second bool
	iter := provider.NewIterator()
	for (!first || !second) && iter.Scan() {
		r := iter.Record()
		if isFirstMate(r) {
			first = true
		} else {
			second = true
		}
		sam.PutInFreePool(r)
	}
	if err := iter.Close(); err != nil {
		return &Error{Path: path, Stage: StagePairedCheck, Kind: SourceUnreadable,
			Err: errors.E(err, "scan for mates")}
	}
	if !first || !second {
		return &Error{Path: path, Stage: StagePairedCheck, Kind: NotPaired,
			Err: errors.E(errors.Invalid, "the file does not contain paired-end reads")}
	}
	return nil
}
