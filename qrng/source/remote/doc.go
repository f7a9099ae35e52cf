// Package remote serves a TrialSource over QUIC and consumes it again.
//
// Only raw measurement batches cross the network, never key material. A
// Server signs each batch with its identity key; a Client verifies the
// signature and that batch sequence numbers keep increasing.
package remote
