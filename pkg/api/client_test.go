package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/classloop/classloop/pkg/api"
	"github.com/classloop/classloop/pkg/toast"
)

// recordingNavigator captures navigation side effects.
type recordingNavigator struct {
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.paths = append(n.paths, path)
}

// authBackend is a scripted stand-in for the API with a rotating token.
type authBackend struct {
	mux         *http.ServeMux
	token       atomic.Value // string
	tokenIssued atomic.Int32
}

func newAuthBackend() *authBackend {
	b := &authBackend{mux: http.NewServeMux()}
	b.token.Store("token-1")
	b.mux.HandleFunc("GET /auth/csrf-token", func(w http.ResponseWriter, _ *http.Request) {
		b.tokenIssued.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"csrfToken": b.token.Load().(string)})
	})
	return b
}

func (b *authBackend) rotate(token string) { b.token.Store(token) }

func (b *authBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, backend *authBackend) (*api.Client, *toast.Center, *recordingNavigator) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	center := toast.NewCenter()
	nav := &recordingNavigator{}
	client := api.New(srv.URL,
		api.WithNotifier(center),
		api.WithNavigator(nav),
	)
	return client, center, nav
}

func TestStateChangingRequestCarriesToken(t *testing.T) {
	backend := newAuthBackend()
	var gotToken string
	backend.mux.HandleFunc("POST /things", func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(api.HeaderCSRF)
		writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	})

	client, _, _ := newTestClient(t, backend)

	resp, err := client.Post(context.Background(), "/things", map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.Status)
	}
	if gotToken != "token-1" {
		t.Errorf("expected token-1 attached, got %q", gotToken)
	}
	if got := backend.tokenIssued.Load(); got != 1 {
		t.Errorf("expected 1 token fetch, got %d", got)
	}
}

func TestReadOnlyRequestSkipsToken(t *testing.T) {
	backend := newAuthBackend()
	var sawHeader bool
	backend.mux.HandleFunc("GET /things", func(w http.ResponseWriter, r *http.Request) {
		sawHeader = r.Header.Get(api.HeaderCSRF) != ""
		writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	})

	client, _, _ := newTestClient(t, backend)

	if _, err := client.Get(context.Background(), "/things"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sawHeader {
		t.Error("GET must not carry the anti-forgery token")
	}
	if got := backend.tokenIssued.Load(); got != 0 {
		t.Errorf("GET must not trigger a token fetch, got %d", got)
	}
}

// Token expiry mid-session: the stale rejection is retried exactly once
// with a fresh token and the caller sees the clean 200.
func TestStaleTokenRetriedOnce(t *testing.T) {
	backend := newAuthBackend()
	var attempts []string
	backend.mux.HandleFunc("PUT /profile", func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(api.HeaderCSRF)
		attempts = append(attempts, token)
		if token != "token-2" {
			backend.rotate("token-2")
			writeJSON(w, http.StatusForbidden, map[string]string{"message": " Invalid CSRF Token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	})

	client, center, nav := newTestClient(t, backend)

	resp, err := client.Put(context.Background(), "/profile", map[string]string{"username": "neo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.Status)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0] != "token-1" || attempts[1] != "token-2" {
		t.Errorf("expected token-1 then token-2, got %v", attempts)
	}
	if center.Current() != nil {
		t.Errorf("recovered retry must be invisible, got notification %+v", center.Current())
	}
	if len(nav.paths) != 0 {
		t.Errorf("expected no navigation, got %v", nav.paths)
	}
}

// Bounded retry: a request failing twice with the stale marker is retried
// exactly once; the second rejection propagates unchanged.
func TestStaleTokenRetryIsBounded(t *testing.T) {
	backend := newAuthBackend()
	calls := 0
	backend.mux.HandleFunc("PUT /profile", func(w http.ResponseWriter, _ *http.Request) {
		calls++
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "invalid csrf token"})
	})

	client, _, _ := newTestClient(t, backend)

	_, err := client.Put(context.Background(), "/profile", map[string]string{"username": "neo"})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*api.Error)
	if !ok {
		t.Fatalf("expected *api.Error, got %T", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Errorf("expected 403, got %d", apiErr.Status)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", calls)
	}
}

// Independent requests each get their own retry budget.
func TestRetryBudgetIsPerRequest(t *testing.T) {
	backend := newAuthBackend()
	calls := 0
	backend.mux.HandleFunc("POST /a", func(w http.ResponseWriter, _ *http.Request) {
		calls++
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "invalid csrf token"})
	})

	client, _, _ := newTestClient(t, backend)

	for i := 0; i < 2; i++ {
		if _, err := client.Post(context.Background(), "/a", nil); err == nil {
			t.Fatal("expected error")
		}
	}
	if calls != 4 {
		t.Errorf("expected 2 attempts per request, got %d total", calls)
	}
}

func TestUnauthorizedNotifiesAndNavigates(t *testing.T) {
	backend := newAuthBackend()
	backend.mux.HandleFunc("GET /secrets", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authenticated"})
	})

	client, center, nav := newTestClient(t, backend)

	_, err := client.Get(context.Background(), "/secrets")
	if err == nil {
		t.Fatal("expected error")
	}
	n := center.Current()
	if n == nil || n.Message != api.MsgSessionExpired {
		t.Errorf("expected session-expired notification, got %+v", n)
	}
	if len(nav.paths) != 1 || nav.paths[0] != "/login" {
		t.Errorf("expected redirect to /login, got %v", nav.paths)
	}
}

// Silent bootstrap: the session-restore probe's 401 produces no
// notification and no navigation.
func TestSilentUnauthorized(t *testing.T) {
	backend := newAuthBackend()
	backend.mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authenticated"})
	})

	client, center, nav := newTestClient(t, backend)

	_, err := client.Get(context.Background(), "/auth/me", api.WithSilentUnauthorized())
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if center.Current() != nil {
		t.Errorf("expected no notification, got %+v", center.Current())
	}
	if len(nav.paths) != 0 {
		t.Errorf("expected no navigation, got %v", nav.paths)
	}
}

func TestForbiddenNotifies(t *testing.T) {
	backend := newAuthBackend()
	backend.mux.HandleFunc("GET /admin", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "forbidden"})
	})

	client, center, nav := newTestClient(t, backend)

	if _, err := client.Get(context.Background(), "/admin"); err == nil {
		t.Fatal("expected error")
	}
	n := center.Current()
	if n == nil || n.Message != api.MsgForbidden {
		t.Errorf("expected permission-denied notification, got %+v", n)
	}
	if len(nav.paths) != 0 {
		t.Errorf("forbidden must not navigate, got %v", nav.paths)
	}
}

func TestServerErrorNotifies(t *testing.T) {
	backend := newAuthBackend()
	backend.mux.HandleFunc("GET /boom", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "stack trace"})
	})

	client, center, _ := newTestClient(t, backend)

	if _, err := client.Get(context.Background(), "/boom"); err == nil {
		t.Fatal("expected error")
	}
	if n := center.Current(); n == nil || n.Message != api.MsgServerError {
		t.Errorf("expected generic server-error notification, got %+v", n)
	}
}

func TestOtherStatusUsesServerMessage(t *testing.T) {
	backend := newAuthBackend()
	backend.mux.HandleFunc("GET /missing", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No such thing"})
	})
	backend.mux.HandleFunc("GET /silent", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	client, center, _ := newTestClient(t, backend)

	if _, err := client.Get(context.Background(), "/missing"); err == nil {
		t.Fatal("expected error")
	}
	if n := center.Current(); n == nil || n.Message != "No such thing" {
		t.Errorf("expected server message surfaced, got %+v", n)
	}

	if _, err := client.Get(context.Background(), "/silent"); err == nil {
		t.Fatal("expected error")
	}
	if n := center.Current(); n == nil || n.Message != api.MsgGeneric {
		t.Errorf("expected generic message, got %+v", n)
	}
}

func TestNetworkFailure(t *testing.T) {
	backend := newAuthBackend()
	srv := httptest.NewServer(backend)
	center := toast.NewCenter()
	client := api.New(srv.URL, api.WithNotifier(center))
	srv.Close()

	_, err := client.Get(context.Background(), "/anything")
	apiErr, ok := err.(*api.Error)
	if !ok {
		t.Fatalf("expected *api.Error, got %T", err)
	}
	if !apiErr.Transport() {
		t.Errorf("expected transport failure, got status %d", apiErr.Status)
	}
	if n := center.Current(); n == nil || n.Message != api.MsgNetwork {
		t.Errorf("expected network notification, got %+v", n)
	}
}

func TestDomainErrorsSuppressAmbientReporting(t *testing.T) {
	backend := newAuthBackend()
	backend.mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
	})

	client, center, nav := newTestClient(t, backend)

	_, err := client.Post(context.Background(), "/auth/login", map[string]string{}, api.WithDomainErrors())
	apiErr, ok := err.(*api.Error)
	if !ok {
		t.Fatalf("expected *api.Error, got %T", err)
	}
	if apiErr.Message != "Invalid email or password" {
		t.Errorf("expected structured server message, got %q", apiErr.Message)
	}
	if center.Current() != nil {
		t.Errorf("domain rejection must not toast, got %+v", center.Current())
	}
	if len(nav.paths) != 0 {
		t.Errorf("domain rejection must not navigate, got %v", nav.paths)
	}
}

func TestAuthorizationHeaderStripped(t *testing.T) {
	backend := newAuthBackend()
	var gotAuth, gotEmpty string
	backend.mux.HandleFunc("POST /things", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotEmpty = r.Header.Get("X-Extra")
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	client, _, _ := newTestClient(t, backend)

	_, err := client.Post(context.Background(), "/things", nil,
		api.WithHeader("Authorization", "Bearer stale"),
		api.WithHeader("X-Extra", ""),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("expected Authorization stripped, got %q", gotAuth)
	}
	if gotEmpty != "" {
		t.Errorf("expected empty header dropped, got %q", gotEmpty)
	}
}

// A caller-supplied Content-Type on a JSON call must not stack with the
// encoder's; the request carries exactly one value.
func TestJSONContentTypeNotDuplicated(t *testing.T) {
	backend := newAuthBackend()
	var contentTypes []string
	backend.mux.HandleFunc("POST /things", func(w http.ResponseWriter, r *http.Request) {
		contentTypes = r.Header.Values("Content-Type")
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	client, _, _ := newTestClient(t, backend)

	_, err := client.Post(context.Background(), "/things", map[string]string{"a": "b"},
		api.WithHeader("Content-Type", "application/json; charset=utf-8"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contentTypes) != 1 {
		t.Fatalf("expected a single Content-Type, got %v", contentTypes)
	}
	if contentTypes[0] != "application/json" {
		t.Errorf("expected encoder's content type to win, got %q", contentTypes[0])
	}
}

func TestMultipartKeepsBoundaryContentType(t *testing.T) {
	backend := newAuthBackend()
	var contentType string
	var fieldValue string
	backend.mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			fieldValue = r.FormValue("title")
		}
		writeJSON(w, http.StatusOK, map[string]string{})
	})

	client, _, _ := newTestClient(t, backend)

	form := api.NewForm().Field("title", "syllabus")
	_, err := client.PostForm(context.Background(), "/upload", form,
		api.WithHeader("Content-Type", "application/json"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contentType == "" || contentType == "application/json" {
		t.Errorf("expected boundary-bearing content type, got %q", contentType)
	}
	if fieldValue != "syllabus" {
		t.Errorf("expected multipart field decoded, got %q", fieldValue)
	}
}

func TestDecodeResponse(t *testing.T) {
	backend := newAuthBackend()
	backend.mux.HandleFunc("GET /user", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "name": "ada"})
	})

	client, _, _ := newTestClient(t, backend)

	resp, err := client.Get(context.Background(), "/user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := resp.Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.ID != 7 || out.Name != "ada" {
		t.Errorf("unexpected payload: %+v", out)
	}
}
