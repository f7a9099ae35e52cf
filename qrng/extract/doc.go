// Package extract removes first-order bias from raw measurement batches.
//
// The Von Neumann extractor only removes bias of independent draws with a
// fixed probability p != 0.5. It does not remove correlation between draws,
// and its output rate depends on the bias, so callers must retry instead of
// assuming a fixed yield.
package extract
