// Package user holds the User aggregate and its credential store.
//
// Provider access and refresh tokens are always stored as ciphertext
// produced by package secret. Accounts implements the credential lifecycle
// (linking a provider on login, clearing credentials on logout) on top of a
// Store, which is backed either by memory or by MongoDB.
package user
