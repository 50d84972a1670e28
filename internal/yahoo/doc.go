// Package yahoo implements mail.Service for Yahoo Mail over IMAP and SMTP.
//
// Every IMAP operation dials imap.mail.yahoo.com, authenticates with SASL
// OAUTHBEARER, selects INBOX, performs one logical operation and logs out.
// No connection outlives a call. Outgoing mail is composed with go-message
// and submitted to smtp.mail.yahoo.com over implicit TLS using the same
// OAuth bearer token.
//
// Message ids are IMAP UIDs rendered in decimal.
package yahoo
