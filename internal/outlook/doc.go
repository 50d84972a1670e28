// Package outlook implements mail.Service over the Microsoft Graph REST API.
//
// Trash and archive are folder moves to the well-known deleteditems and
// archive folders. Replies are created as drafts and then sent.
//
// Microsoft access tokens are not refreshed before a Service is built.
// Instead a Service may carry a RefreshFunc: when Graph answers 401 the
// token is refreshed once and the request retried once.
package outlook
