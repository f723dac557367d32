// Package bamprovider provides sequential readers for BAM and SAM files.
//
// The Provider is an interface for reading a BAM or SAM file from start to
// end. Every call to NewIterator starts a fresh scan, so a caller that needs
// several passes over the same file simply creates several iterators.
package bamprovider
