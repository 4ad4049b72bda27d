package api

import (
	"context"
	"net/http"
	"strings"
)

// HeaderCSRF is the dedicated header carrying the anti-forgery token on
// state-changing requests.
const HeaderCSRF = "X-CSRF-Token"

// Interceptor transforms an outgoing request before transmission.
// Interceptors are composed into an ordered pipeline at client
// construction time and must not retain the request.
type Interceptor func(ctx context.Context, req *http.Request) error

// readOnlyMethods are the methods that never carry the anti-forgery token.
var readOnlyMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// attachCSRF ensures a token is loaded and attaches it on state-changing
// methods. A missing token is not fatal here; the server decides whether
// the request needed one.
func (c *Client) attachCSRF(ctx context.Context, req *http.Request) error {
	if readOnlyMethods[req.Method] {
		return nil
	}
	c.tokens.EnsureLoaded(ctx)
	if token, ok := c.tokens.Token(); ok {
		req.Header.Set(HeaderCSRF, token)
	}
	return nil
}

// normalizeMultipart removes any caller-supplied content type from
// multipart requests so the boundary-bearing value set by the form
// builder is the only one transmitted.
func normalizeMultipart(_ context.Context, req *http.Request) error {
	values := req.Header.Values("Content-Type")
	if len(values) < 2 {
		return nil
	}
	for _, v := range values {
		if strings.HasPrefix(v, "multipart/") {
			req.Header.Set("Content-Type", v)
			return nil
		}
	}
	return nil
}

// stripAuthorization drops any stale bearer header a caller may have set.
// Session auth is cookie plus anti-forgery token, never bearer.
func stripAuthorization(_ context.Context, req *http.Request) error {
	req.Header.Del("Authorization")
	return nil
}

// dropEmptyHeaders removes headers whose values are all empty, so the
// wire never carries a malformed header line.
func dropEmptyHeaders(_ context.Context, req *http.Request) error {
	for key, values := range req.Header {
		keep := values[:0]
		for _, v := range values {
			if v != "" {
				keep = append(keep, v)
			}
		}
		if len(keep) == 0 {
			req.Header.Del(key)
		} else {
			req.Header[key] = keep
		}
	}
	return nil
}
