// Package gmail implements mail.Service over the Gmail REST API.
//
// Requests are authenticated with the user's OAuth2 access token. Outgoing
// messages are assembled as raw RFC 5322 text (multipart/mixed when there
// are attachments) and handed to the send endpoint base64url-encoded.
// Reading a message removes its UNREAD label; archiving removes INBOX.
//
// Example usage:
//
//	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
//	svc, err := gmail.NewService(ctx, "jane@example.com", ts, slog.Default())
//	if err != nil {
//	    return err
//	}
//	res := svc.SendEmail(ctx, "bob@example.com", "Hello", "Hi Bob", nil)
package gmail
