// Package bits defines the raw bit representation shared by every stage of the
// pipeline and the packer that turns bit streams into bytes.
//
// Packing is most-significant-bit first: the bit stream 0000000100000010
// packs to the bytes 0x01 0x02. Downstream key derivation relies on this
// single deterministic mapping.
package bits
