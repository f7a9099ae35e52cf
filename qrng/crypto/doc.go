// Package crypto encrypts data under generated keys.
//
// It uses AES in CBC mode with PKCS#7 padding:
//   - keys of 128, 192 or 256 bits
//   - a random 16-byte IV per message, read from crypto/rand
//   - no authentication tag; pair with a MAC where integrity matters
package crypto
