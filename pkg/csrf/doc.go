// Package csrf caches the server-issued anti-forgery token and keeps its
// refresh single-flight: no matter how many callers need a token at once,
// only one request to the token endpoint is outstanding at a time.
//
// A missing token is never fatal here. Fetch failures are logged and
// reported as "no token available" so that requests which don't strictly
// need the token can still proceed; the server rejects the ones that do.
package csrf
