// Package generate implements the generation loop: it calls a trial source
// repeatedly, extracts each batch and stops once the requested number of bits
// is available (SATISFIED) or the retry budget is spent (EXHAUSTED).
//
// The loop is synchronous. The trial-source call is its only blocking point
// and the request context is observed between calls. Biased or degenerate
// sources can make progress arbitrarily slow, so the retry budget bounds every
// request and failures are reported instead of looping indefinitely.
package generate
