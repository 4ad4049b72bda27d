package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/classloop/classloop/pkg/csrf"
	"github.com/classloop/classloop/pkg/toast"
)

// DefaultTimeout is the per-request ceiling when none is configured.
const DefaultTimeout = 5 * time.Second

const defaultTracerName = "classloop/api"

// csrfTokenPath is the endpoint issuing fresh anti-forgery tokens.
const csrfTokenPath = "/auth/csrf-token"

// loginRoute is where the navigator is sent on session expiry.
const loginRoute = "/login"

// Navigator performs client-side navigation as an error side effect.
// Implementations must not block.
type Navigator interface {
	Navigate(path string)
}

// Client is the HTTP client shared by every API call. Outgoing requests
// flow through an ordered interceptor pipeline; failed responses are
// classified once, reported to the notification center, and returned to
// the caller as *Error.
type Client struct {
	baseURL      string
	http         *http.Client
	interceptors []Interceptor
	tokens       *csrf.Refresher
	toasts       *toast.Center
	nav          Navigator
	metrics      *Metrics
	tracer       trace.Tracer
	log          *slog.Logger
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout      time.Duration
	httpClient   *http.Client
	cache        *csrf.Cache
	toasts       *toast.Center
	nav          Navigator
	metrics      *Metrics
	tracerName   string
	logger       *slog.Logger
	interceptors []Interceptor
}

// WithTimeout sets the per-request timeout ceiling.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithHTTPClient replaces the underlying transport client. The configured
// timeout is still applied unless the supplied client carries its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithTokenCache shares an externally held token cache.
func WithTokenCache(cache *csrf.Cache) Option {
	return func(c *clientConfig) { c.cache = cache }
}

// WithNotifier routes classified errors to a notification center.
func WithNotifier(center *toast.Center) Option {
	return func(c *clientConfig) { c.toasts = center }
}

// WithNavigator wires navigation side effects (session-expiry redirect).
func WithNavigator(nav Navigator) Option {
	return func(c *clientConfig) { c.nav = nav }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(c *clientConfig) { c.metrics = m }
}

// WithTracerName overrides the OpenTelemetry tracer name.
func WithTracerName(name string) Option {
	return func(c *clientConfig) { c.tracerName = name }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// WithInterceptors appends extra request interceptors after the built-in
// pipeline.
func WithInterceptors(ics ...Interceptor) Option {
	return func(c *clientConfig) { c.interceptors = append(c.interceptors, ics...) }
}

// New creates a Client rooted at baseURL. The session cookie is carried
// in an in-process jar unless the supplied http.Client brings its own.
func New(baseURL string, opts ...Option) *Client {
	cfg := clientConfig{
		timeout:    DefaultTimeout,
		tracerName: defaultTracerName,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.cache == nil {
		cfg.cache = &csrf.Cache{}
	}

	hc := cfg.httpClient
	if hc == nil {
		jar, _ := cookiejar.New(nil)
		hc = &http.Client{Jar: jar}
	}
	if hc.Timeout == 0 {
		hc.Timeout = cfg.timeout
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		toasts:  cfg.toasts,
		nav:     cfg.nav,
		metrics: cfg.metrics,
		tracer:  otel.Tracer(cfg.tracerName),
		log:     cfg.logger,
	}
	c.tokens = csrf.NewRefresher(cfg.cache, c.fetchToken, cfg.logger)
	c.interceptors = append([]Interceptor{
		c.attachCSRF,
		normalizeMultipart,
		stripAuthorization,
		dropEmptyHeaders,
	}, cfg.interceptors...)
	return c
}

// Tokens exposes the anti-forgery token refresher so session operations
// can rotate the token after privilege changes.
func (c *Client) Tokens() *csrf.Refresher { return c.tokens }

// Response is a terminal API response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// CallOption configures a single call.
type CallOption func(*call)

// WithSilentUnauthorized marks the call as a session-restore probe: a 401
// propagates to the caller without a notification or navigation.
func WithSilentUnauthorized() CallOption {
	return func(cl *call) { cl.silentUnauthorized = true }
}

// WithDomainErrors marks the call as one whose client-error rejections
// are business outcomes (bad credentials, duplicate email). 4xx failures
// skip the global notification and navigation and are only returned as
// structured errors for inline rendering; server and network failures are
// still reported normally.
func WithDomainErrors() CallOption {
	return func(cl *call) { cl.domainErrors = true }
}

// WithHeader adds a header to the call.
func WithHeader(key, value string) CallOption {
	return func(cl *call) { cl.headers.Add(key, value) }
}

// call is one logical request. body rebuilds the payload reader so the
// stale-token retry can resubmit the identical request.
type call struct {
	method             string
	path               string
	contentType        string
	body               []byte
	headers            http.Header
	silentUnauthorized bool
	domainErrors       bool
}

func newCall(method, path string, opts []CallOption) *call {
	cl := &call{method: method, path: path, headers: make(http.Header)}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// Get issues a read-only request.
func (c *Client) Get(ctx context.Context, path string, opts ...CallOption) (*Response, error) {
	return c.do(ctx, newCall(http.MethodGet, path, opts))
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) (*Response, error) {
	return c.do(ctx, newCall(http.MethodDelete, path, opts))
}

// Post issues a POST with a JSON body. A nil body sends an empty request.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	cl := newCall(http.MethodPost, path, opts)
	if err := cl.encodeJSON(body); err != nil {
		return nil, err
	}
	return c.do(ctx, cl)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	cl := newCall(http.MethodPut, path, opts)
	if err := cl.encodeJSON(body); err != nil {
		return nil, err
	}
	return c.do(ctx, cl)
}

// PostForm issues a POST with a multipart body built from form.
func (c *Client) PostForm(ctx context.Context, path string, form *Form, opts ...CallOption) (*Response, error) {
	cl := newCall(http.MethodPost, path, opts)
	body, contentType, err := form.encode()
	if err != nil {
		return nil, err
	}
	cl.body = body
	cl.contentType = contentType
	return c.do(ctx, cl)
}

func (cl *call) encodeJSON(body any) error {
	if body == nil {
		return nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	cl.body = data
	cl.contentType = "application/json"
	return nil
}

// do runs the request through the pipeline with a bounded stale-token
// retry: the attempt counter is per logical call, so concurrent requests
// each get their own single retry budget.
func (c *Client) do(ctx context.Context, cl *call) (*Response, error) {
	const maxStaleRetries = 1

	for attempt := 0; ; attempt++ {
		resp, retry, err := c.send(ctx, cl, attempt < maxStaleRetries)
		if err != nil {
			return nil, err
		}
		if retry {
			continue
		}
		return resp, nil
	}
}

// send performs one attempt. retry=true signals a stale-token rejection
// that is still within budget; the token has already been re-fetched.
func (c *Client) send(ctx context.Context, cl *call, retryBudget bool) (resp *Response, retry bool, err error) {
	ctx, span := c.tracer.Start(ctx, cl.method+" "+cl.path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", cl.method),
			attribute.String("http.url", c.baseURL+cl.path),
		),
	)
	defer span.End()

	req, err := c.buildRequest(ctx, cl)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.metrics.transportError()
		c.log.Debug("api: transport failure", "method", cl.method, "path", cl.path, "error", err)
		c.notify(toast.LevelError, MsgNetwork)
		return nil, false, &Error{Status: 0, Message: MsgNetwork}
	}

	body, readErr := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	if readErr != nil {
		span.RecordError(readErr)
		span.SetStatus(codes.Error, "body read failure")
		c.metrics.transportError()
		c.notify(toast.LevelError, MsgNetwork)
		return nil, false, &Error{Status: 0, Message: MsgNetwork}
	}

	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))
	c.metrics.observeRequest(cl.method, httpResp.StatusCode)

	if httpResp.StatusCode < http.StatusBadRequest {
		return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: body}, false, nil
	}

	message := serverMessage(body)
	if httpResp.StatusCode == http.StatusForbidden && isStaleToken(message) && retryBudget {
		span.SetStatus(codes.Error, "stale csrf token")
		c.metrics.staleRetry()
		c.log.Debug("api: stale csrf token, refreshing and retrying once",
			"method", cl.method, "path", cl.path)
		c.tokens.ForceRefresh(ctx)
		return nil, true, nil
	}

	span.SetStatus(codes.Error, http.StatusText(httpResp.StatusCode))
	c.reportFailure(cl, httpResp.StatusCode, message)

	if message == "" {
		message = defaultMessage(httpResp.StatusCode)
	}
	return nil, false, &Error{Status: httpResp.StatusCode, Message: message}
}

func (c *Client) buildRequest(ctx context.Context, cl *call) (*http.Request, error) {
	var reader io.Reader
	if cl.body != nil {
		reader = bytes.NewReader(cl.body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reader)
	if err != nil {
		return nil, err
	}
	for key, values := range cl.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	// Set, not Add: the encoded body's content type wins over any
	// caller-supplied header so the request never carries two values.
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	for _, intercept := range c.interceptors {
		if err := intercept(ctx, req); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// reportFailure maps a failed response to its user-facing side effects.
// The failure still propagates to the caller afterwards; this layer never
// swallows errors.
func (c *Client) reportFailure(cl *call, status int, message string) {
	if cl.domainErrors && status < http.StatusInternalServerError {
		return
	}
	switch {
	case status == http.StatusUnauthorized:
		if cl.silentUnauthorized {
			return
		}
		c.notify(toast.LevelError, MsgSessionExpired)
		if c.nav != nil {
			c.nav.Navigate(loginRoute)
		}
	case status == http.StatusForbidden:
		c.notify(toast.LevelError, MsgForbidden)
	case status >= http.StatusInternalServerError:
		c.notify(toast.LevelError, MsgServerError)
	default:
		if message == "" {
			message = MsgGeneric
		}
		c.notify(toast.LevelError, message)
	}
}

func (c *Client) notify(level toast.Level, message string) {
	if c.toasts == nil {
		return
	}
	c.toasts.Show(level, message)
	c.metrics.notification(string(level))
}

func defaultMessage(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return MsgSessionExpired
	case status == http.StatusForbidden:
		return MsgForbidden
	case status >= http.StatusInternalServerError:
		return MsgServerError
	default:
		return MsgGeneric
	}
}

// fetchToken retrieves a fresh anti-forgery token. It deliberately
// bypasses the interceptor pipeline and the error reporter: a failed
// token fetch is the refresher's concern, not a user-visible event.
func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+csrfTokenPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Status: resp.StatusCode, Message: "token endpoint returned " + http.StatusText(resp.StatusCode)}
	}
	var payload struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.CSRFToken == "" {
		return "", &Error{Status: resp.StatusCode, Message: "token endpoint returned no token"}
	}
	c.metrics.tokenFetch()
	return payload.CSRFToken, nil
}
