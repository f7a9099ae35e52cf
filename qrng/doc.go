// Package qrng turns raw outcomes of a probabilistic measurement source into
// symmetric key material.
//
// The pipeline is: a source.TrialSource produces raw batches, the generation
// loop debiases them with a Von Neumann extractor until enough bits are
// collected, and the bits are packed into an AES key. Keys can be used with
// the CBC cipher adapter, and any bit sequence can be inspected with the
// entropy analyzer.
//
// Generator ties these packages together for applications. The subpackages
// can also be used directly.
package qrng
