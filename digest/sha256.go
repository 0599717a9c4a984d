// Package digest wraps SHA-256 behind a small interface that the payload
// codec's per-period identifier hash goes through. The codec's HKDF day-
// subkey derivation does not use this interface: it calls crypto/sha256
// directly. The original C++ sources
// ship four interchangeable SHA-256 backends (mbedtls, openssl, tinycrypt,
// Windows CNG) behind one header; this is the Go-native equivalent of that
// swap point. No third-party SHA-256 implementation in the retrieved pack
// improves on the standard library's, so the only backend shipped here
// wraps crypto/sha256 — the trait exists so a platform layer with a
// hardware SHA-256 peripheral can supply its own Hash for that per-period
// hash without touching the codec package.
package digest

import "crypto/sha256"

// Hash computes a 32-byte SHA-256 digest of b.
type Hash interface {
	Sum256(b []byte) [32]byte
}

// Standard is the crypto/sha256-backed Hash.
type Standard struct{}

func (Standard) Sum256(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// Default is the Hash used when no backend is configured explicitly.
var Default Hash = Standard{}
