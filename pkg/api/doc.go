// Package api is the HTTP client every remote call goes through.
//
// Outgoing requests pass an ordered pipeline of interceptors composed at
// construction time: attach the anti-forgery token on state-changing
// methods, normalize multipart content types, strip stale bearer headers,
// and drop empty header values.
//
// Failed responses are handled centrally. A 403 carrying the server's
// stale-token marker triggers exactly one token refresh and resubmit per
// logical call. Every other failure is classified once (session expiry,
// permission denied, server error, network failure), reported to the
// notification center, and then propagated to the caller as *Error.
// Session expiry redirects to login unless the call was a silent
// session-restore probe. The pipeline annotates failures; it never
// swallows them.
package api
