// Package quic wraps quic-go for remote trial sources: listeners present a
// self-signed TLS 1.3 certificate backed by the source identity and speak
// ALPN "qrng/1".
package quic
