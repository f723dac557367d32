/*
bio-fragnorm subsamples paired-end BAM or SAM files so that they share the
same fragment size distribution.

For every fragment size, each regular input keeps as many read pairs as the
input with the fewest pairs of that size. A size missing from any input, or
from the control, is dropped everywhere. An optional control input is
subsampled proportionally instead: it keeps the shape of the shared
distribution while giving up as few of its own pairs as the shape allows.

A pair is kept or dropped as a unit, so both mates of every kept pair are
written. Each input is read three times: once to build its fragment size
histogram, once to flip one coin per pair, and once to write the kept pairs.
The coin flips are seeded, so repeated runs with the same seed and inputs
produce the same outputs.

Sample usage:

bio-fragnorm \
    --bam a.bam --bam b.bam \
    --control-bam control.bam \
    --out-dir normalized \
    --metrics normalized/metrics.tsv

writes normalized/a.bam.normalized.bam, normalized/b.bam.normalized.bam and
normalized/control.bam.normalized.bam. SAM inputs produce SAM outputs;
anything else is written as BAM.

Each --bam flag names one input; inputs may also be given as positional
arguments. All inputs must have distinct base names.
*/
package main
