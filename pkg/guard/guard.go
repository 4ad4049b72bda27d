package guard

import (
	"net/http"

	"github.com/classloop/classloop/pkg/session"
)

// LoginPath is where anonymous visitors of protected views are sent.
const LoginPath = "/login"

// Decision is the outcome of evaluating a protected view against the
// current session state.
type Decision int

const (
	// DecisionAllow renders the protected view.
	DecisionAllow Decision = iota

	// DecisionLoading renders a neutral placeholder. The initial
	// session check has not resolved yet; redirecting now would bounce
	// users who are in fact authenticated.
	DecisionLoading

	// DecisionRedirectLogin sends the visitor to the login view.
	DecisionRedirectLogin
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionLoading:
		return "loading"
	case DecisionRedirectLogin:
		return "redirect_login"
	default:
		return "unknown"
	}
}

// Guard gates protected views on the session store. It only reads state;
// it never performs network calls of its own.
type Guard struct {
	store *session.Store
}

// New creates a Guard over store.
func New(store *session.Store) *Guard {
	return &Guard{store: store}
}

// Check evaluates the current session state.
func (g *Guard) Check() Decision {
	return Evaluate(g.store.Status())
}

// Evaluate maps a session status to a guard decision.
func Evaluate(status session.Status) Decision {
	switch status {
	case session.StatusAuthenticated:
		return DecisionAllow
	case session.StatusLoading:
		return DecisionLoading
	default:
		return DecisionRedirectLogin
	}
}

// Protect wraps an http.Handler serving a protected view. While the
// session is loading the placeholder handler runs instead (never a
// redirect); anonymous visitors are redirected to the login path.
// A nil placeholder falls back to a minimal 200 response.
func (g *Guard) Protect(next, placeholder http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch g.Check() {
		case DecisionAllow:
			next.ServeHTTP(w, r)
		case DecisionLoading:
			if placeholder != nil {
				placeholder.ServeHTTP(w, r)
				return
			}
			w.WriteHeader(http.StatusOK)
		case DecisionRedirectLogin:
			http.Redirect(w, r, LoginPath, http.StatusFound)
		}
	})
}
