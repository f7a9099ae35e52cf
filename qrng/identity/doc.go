// Package identity provides the Ed25519 identity of a remote trial source.
//
// Clients pin a source by its SourceID, the SHA-256 of its public key, and
// reject batches that are not signed by that key.
package identity
