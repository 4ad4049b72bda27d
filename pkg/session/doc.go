// Package session holds the client-side authenticated-session state.
//
// The Store is a small state machine over three statuses: loading (the
// initial value, held until the first session-restore check resolves),
// anonymous, and authenticated. Transitions are driven exclusively by
// Events, each a closed (operation, phase) pair; there is no string-keyed
// dispatch, so a misspelled action cannot silently no-op a transition.
//
// Route guards and views read the Store; they never mutate it. The user
// profile is present exactly when the status is authenticated.
package session
