package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/classloop/classloop/pkg/api"
	"github.com/classloop/classloop/pkg/csrf"
	"github.com/classloop/classloop/pkg/session"
)

// Fallback messages when the server rejection carried no message.
const (
	fallbackLogin    = "Login failed"
	fallbackRegister = "Registration failed"
	fallbackLogout   = "Logout failed"
)

// Manager owns every session transition. Views call it; it drives the
// Gateway and applies the resulting events to the Store. After each
// successful privilege change it rotates the anti-forgery token, since
// the server reissues it, before the transition is considered complete.
type Manager struct {
	store  *session.Store
	gw     *Gateway
	tokens *csrf.Refresher
	log    *slog.Logger

	bootstrapOnce sync.Once
}

// NewManager wires a Manager. A nil logger falls back to slog.Default.
func NewManager(store *session.Store, gw *Gateway, tokens *csrf.Refresher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, gw: gw, tokens: tokens, log: logger}
}

// Store returns the session store the manager mutates.
func (m *Manager) Store() *session.Store { return m.store }

// Bootstrap primes the anti-forgery token and restores the session,
// exactly once per process. The restore probe is silent: its 401 is the
// expected anonymous case and produces no notification or navigation.
// The store is guaranteed to have left StatusLoading when this returns.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.bootstrapOnce.Do(func() {
		m.tokens.ForceRefresh(ctx)
		m.loadUser(ctx)
	})
}

func (m *Manager) loadUser(ctx context.Context) {
	m.store.Apply(session.Started(session.OpLoadUser))
	user, err := m.gw.CurrentUser(ctx, true)
	if err != nil {
		m.log.Debug("auth: session restore resolved anonymous", "error", err)
		m.store.Apply(session.Failed(session.OpLoadUser, ""))
		return
	}
	m.store.Apply(session.Succeeded(session.OpLoadUser, user))
}

// Login authenticates with credentials. Rejections are captured into the
// store's LastError for inline form rendering and returned to the caller;
// they are not toasted here.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	m.store.Apply(session.Started(session.OpLogin))
	user, err := m.gw.Login(ctx, creds)
	if err != nil {
		m.store.Apply(session.Failed(session.OpLogin, rejectionMessage(err, fallbackLogin)))
		return err
	}
	m.tokens.ForceRefresh(ctx)
	m.store.Apply(session.Succeeded(session.OpLogin, user))
	return nil
}

// Register creates an account and authenticates it. Returns the optional
// server-issued access token alongside any error.
func (m *Manager) Register(ctx context.Context, reg Registration) (string, error) {
	m.store.Apply(session.Started(session.OpRegister))
	user, accessToken, err := m.gw.Register(ctx, reg)
	if err != nil {
		m.store.Apply(session.Failed(session.OpRegister, rejectionMessage(err, fallbackRegister)))
		return "", err
	}
	m.tokens.ForceRefresh(ctx)
	m.store.Apply(session.Succeeded(session.OpRegister, user))
	return accessToken, nil
}

// Logout ends the session. On success the store resets to anonymous; on
// failure the session state is kept and the error captured.
func (m *Manager) Logout(ctx context.Context) error {
	m.store.Apply(session.Started(session.OpLogout))
	if err := m.gw.Logout(ctx); err != nil {
		m.store.Apply(session.Failed(session.OpLogout, rejectionMessage(err, fallbackLogout)))
		return err
	}
	m.tokens.ForceRefresh(ctx)
	m.store.Apply(session.Succeeded(session.OpLogout, nil))
	return nil
}

// rejectionMessage extracts the server-supplied message for inline
// display, falling back to a generic operation message.
func rejectionMessage(err error, fallback string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" && !apiErr.Transport() {
		return apiErr.Message
	}
	return fallback
}
