// Package toast provides transient user-facing notifications.
//
// The Center enforces a single-notification-at-a-time policy: showing a
// new message dismisses whatever is currently visible. Views subscribe to
// render the active notification; headless consumers (the CLI) can route
// notifications to a slog.Logger with LogTo.
package toast
