// Package temporal computes trend metrics between dated fragments that describe the
// same quantity over time, and renders calendar dates the way citations expect them.
//
// Trend computation follows a nearest-prior-period policy: a fragment is compared with
// the latest fragment of the same metric whose date is strictly earlier. Fragments
// that cannot be compared get no entry at all, which callers must read as "no trend
// claim" rather than "unchanged".
package temporal
