// Package keys turns extracted bits into symmetric key material.
//
// Derive is a plain truncation: the first key-size bits are packed MSB-first
// and used as the key. DeriveHKDF runs the bits through HKDF-SHA256 instead.
package keys
