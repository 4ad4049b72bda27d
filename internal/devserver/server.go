package devserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/classloop/classloop/pkg/session"
)

// CookieName carries the session ID.
const CookieName = "classloop_sid"

// headerCSRF is the header state-changing requests must present.
const headerCSRF = "X-CSRF-Token"

const (
	sessionTTL     = 24 * time.Hour
	accessTokenTTL = 15 * time.Minute
	jwtIssuer      = "classloop-dev"
)

type ctxKey int

const sessionKey ctxKey = iota

// Server is a local stand-in for the remote auth API: cookie sessions,
// anti-forgery tokens rotated on privilege change, and the /api/auth
// contract the client consumes.
type Server struct {
	users     *UserRegistry
	sessions  SessionStore
	jwtSecret []byte
	log       *slog.Logger
	httpSrv   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSessionStore replaces the default in-memory session store.
func WithSessionStore(store SessionStore) Option {
	return func(s *Server) { s.sessions = store }
}

// WithUserRegistry replaces the default empty registry.
func WithUserRegistry(users *UserRegistry) Option {
	return func(s *Server) { s.users = users }
}

// WithJWTSecret sets the HMAC secret signing register access tokens.
func WithJWTSecret(secret []byte) Option {
	return func(s *Server) { s.jwtSecret = secret }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.log = logger }
}

// New creates a Server listening on addr when started.
func New(addr string, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.users == nil {
		s.users = NewUserRegistry(0)
	}
	if s.sessions == nil {
		s.sessions = NewMemoryStore()
	}
	if len(s.jwtSecret) == 0 {
		// Throwaway per-process secret; dev tokens don't outlive the server.
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(err)
		}
		s.jwtSecret = secret
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler()}
	return s
}

// Handler builds the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withSession)
		r.Use(s.requireCSRF)

		r.Get("/auth/csrf-token", s.handleCSRFToken)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/me", s.handleMe)
		r.Put("/profile", s.handleUpdateProfile)
		r.Get("/test", s.handleTest)
	})
	return r
}

// Start serves until Shutdown or listener failure.
func (s *Server) Start() error {
	s.log.Info("devserver: listening", "addr", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// withSession loads the cookie-bound session, creating one on first
// contact, and stashes it in the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess *Session
		if cookie, err := r.Cookie(CookieName); err == nil {
			sess, _ = s.sessions.Load(r.Context(), cookie.Value)
		}
		if sess == nil {
			sess = &Session{
				ID:        uuid.NewString(),
				ExpiresAt: time.Now().Add(sessionTTL),
			}
			if err := s.sessions.Save(r.Context(), sess); err != nil {
				s.writeError(w, http.StatusInternalServerError, "session store unavailable")
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Expires:  sess.ExpiresAt,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

// requireCSRF rejects state-changing requests whose token doesn't match
// the one bound to the session. The message is the exact marker the
// client's retry logic looks for.
func (s *Server) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		sess := sessionFrom(r.Context())
		token := r.Header.Get(headerCSRF)
		if sess.CSRFToken == "" || token == "" || token != sess.CSRFToken {
			s.writeError(w, http.StatusForbidden, "invalid csrf token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("devserver: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	token, err := s.rotateToken(r.Context(), sess)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "session store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Username == "" || body.Email == "" || body.Password == "" {
		s.writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	if body.Role == "" {
		body.Role = "STUDENT"
	}

	user, err := s.users.Create(body.Username, body.Email, body.Password, body.Role)
	if errors.Is(err, ErrEmailTaken) {
		s.writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not create account")
		return
	}

	sess := sessionFrom(r.Context())
	sess.UserID = user.ID
	if _, err := s.rotateToken(r.Context(), sess); err != nil {
		s.writeError(w, http.StatusInternalServerError, "session store unavailable")
		return
	}

	accessToken, err := s.mintAccessToken(user)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"user":        user,
		"accesstoken": accessToken,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.users.Authenticate(body.Email, body.Password)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	sess := sessionFrom(r.Context())
	sess.UserID = user.ID
	if _, err := s.rotateToken(r.Context(), sess); err != nil {
		s.writeError(w, http.StatusInternalServerError, "session store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.UserID = 0
	if _, err := s.rotateToken(r.Context(), sess); err != nil {
		s.writeError(w, http.StatusInternalServerError, "session store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r)
	if user == nil {
		s.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := s.currentUser(r)
	if user == nil {
		s.writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	var body struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	updated, err := s.users.UpdateUsername(user.ID, body.Username)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "could not update profile")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user": updated})
}

func (s *Server) handleTest(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"data": "classloop dev API"})
}

func (s *Server) currentUser(r *http.Request) *session.User {
	sess := sessionFrom(r.Context())
	if !sess.Authenticated() {
		return nil
	}
	return s.users.Get(sess.UserID)
}

// rotateToken issues a fresh anti-forgery token and persists the session.
func (s *Server) rotateToken(ctx context.Context, sess *Session) (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	sess.CSRFToken = hex.EncodeToString(buf)
	sess.ExpiresAt = time.Now().Add(sessionTTL)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return "", err
	}
	return sess.CSRFToken, nil
}

func (s *Server) mintAccessToken(user *session.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  jwtIssuer,
		"sub":  user.Email,
		"uid":  user.ID,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
		"jti":  uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("devserver: response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"message": message})
}

func sessionFrom(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey).(*Session)
	return sess
}
