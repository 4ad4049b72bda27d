// Package guard gates protected views on the client session state.
//
// The guard reads the session store and nothing else: authenticated
// renders the protected view, loading renders a placeholder (never a
// redirect, since the initial session check may still resolve to
// authenticated), and anonymous redirects to the login view.
package guard
