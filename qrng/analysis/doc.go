// Package analysis computes randomness diagnostics over a bit sequence:
// Shannon and min-entropy, bit distribution, a runs test, autocorrelation,
// a chi-square uniformity test and LZ4 compressibility.
//
// A Report is descriptive. It never rejects a sequence, and a metric that is
// undefined for the input (for example the runs test on an empty sequence) is
// recorded in Report.Undefined without affecting the others. Entropy alone is
// a weak signal: an alternating 0101... sequence has maximal Shannon entropy
// and is caught by the runs test and autocorrelation instead.
package analysis
