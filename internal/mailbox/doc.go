// Package mailbox resolves a user id to a ready mail.Service.
//
// The Factory reads the user's stored credentials, decrypts them, refreshes
// or validates them as the provider requires and returns a freshly built
// provider service wrapped with metrics and tracing. Services are never
// cached; every call reflects the credentials persisted at that moment.
package mailbox
