// Package devserver is a local stand-in for the remote authentication
// API. It implements the contract the client consumes: cookie-bound
// sessions, an anti-forgery token endpoint, token rotation on every
// privilege change, and the exact "invalid csrf token" rejection the
// client's retry path keys on.
//
// Sessions live in memory by default; a Redis-backed store is available
// so logins survive a dev-server restart.
package devserver
