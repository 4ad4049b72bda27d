// Package auth wraps the remote authentication API.
//
// Gateway is the thin HTTP surface (login, register, logout, current
// user). Manager is the only writer of the session store: each operation
// emits start/success/failure events, and successful privilege changes
// rotate the anti-forgery token before the transition completes so the
// next state-changing request carries a valid one.
//
// Bootstrap runs once per process: prime the token, then restore the
// session silently. Until it resolves the store reports StatusLoading and
// route guards render a placeholder instead of redirecting.
package auth
