/*Package fragnorm normalizes the fragment size distribution of a set of
  paired-end alignment files.

  Concepts:

  The fragment size of a read pair is the absolute insert size (TLEN) of its
  first mate. Pairs are counted, sampled and kept through their first mate;
  second mates follow their first mate by name.

  Each input ("collection") gets a fragment size histogram. The
  minimum-count profile holds, for every size seen in any regular collection,
  the smallest count of that size among the regular collections. A size that
  is missing from some regular collection, or from the control when one is
  configured, gets a count of zero.

  A regular collection keeps a pair of size s with probability
  profile[s]/hist[s], so that it keeps profile[s] pairs of that size in
  expectation.

  The optional control is normalized proportionally. Each size s has a share
  profile[s]/total of the profile. The control keeps the largest total T such
  that for every size, share*T does not exceed the control's own count, and
  then keeps a pair of size s with probability floor(share*T)/control[s].

  Passes:

  1. Histograms of all collections. This is a barrier: the profile needs every
     histogram, and any failure here ends the run.

  2. One Bernoulli trial per first mate, drawn from a single seeded random
     source shared by all collections, in collection order.

  3. A copy of every record whose name won its trial, in source order, to
     <output dir>/<name>.normalized.<ext>.

  Failures in passes 2 and 3 are confined to their collection: the output of
  that collection is removed and the remaining collections are processed.
*/
package fragnorm
