// Package secret encrypts provider tokens before they are persisted.
//
// Tokens are encrypted with AES-256-CBC under a key derived once from a
// server secret with scrypt. Every call to Encrypt draws a fresh IV, so two
// encryptions of the same token never produce the same ciphertext. The
// stored format is hex(iv) + ":" + hex(ciphertext).
package secret
