package auth

import (
	"context"
	"errors"

	"github.com/classloop/classloop/pkg/api"
	"github.com/classloop/classloop/pkg/session"
)

// Auth endpoints. Paths are a fixed contract with the backend.
const (
	registerPath = "/auth/register"
	loginPath    = "/auth/login"
	logoutPath   = "/auth/logout"
	mePath       = "/auth/me"
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the register request body.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ErrInvalidResponse is returned when a success response carries no user.
var ErrInvalidResponse = errors.New("auth: response carried no user")

// Gateway makes the raw auth API calls. It performs no state transitions;
// the Manager wraps it.
type Gateway struct {
	client *api.Client
}

// NewGateway creates a Gateway over client.
func NewGateway(client *api.Client) *Gateway {
	return &Gateway{client: client}
}

type userPayload struct {
	User *session.User `json:"user"`
	// AccessToken accompanies register responses on some deployments.
	// It is informational only; the session credential is the cookie.
	AccessToken string `json:"accesstoken"`
}

// Login exchanges credentials for an authenticated session cookie.
// Rejections are domain errors rendered inline, not toasted.
func (g *Gateway) Login(ctx context.Context, creds Credentials) (*session.User, error) {
	resp, err := g.client.Post(ctx, loginPath, creds, api.WithDomainErrors())
	if err != nil {
		return nil, err
	}
	return decodeUser(resp)
}

// Register creates an account and authenticates it. The server may
// include an access token; it is returned alongside the user.
func (g *Gateway) Register(ctx context.Context, reg Registration) (*session.User, string, error) {
	resp, err := g.client.Post(ctx, registerPath, reg, api.WithDomainErrors())
	if err != nil {
		return nil, "", err
	}
	var payload userPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, "", err
	}
	if payload.User == nil {
		return nil, "", ErrInvalidResponse
	}
	return payload.User, payload.AccessToken, nil
}

// Logout invalidates the server-side session. A 200 with no body is a
// success.
func (g *Gateway) Logout(ctx context.Context) error {
	_, err := g.client.Post(ctx, logoutPath, nil)
	return err
}

// CurrentUser fetches the profile bound to the session cookie. When
// silent is true a 401 propagates without user-visible side effects;
// this is the session-restore probe.
func (g *Gateway) CurrentUser(ctx context.Context, silent bool) (*session.User, error) {
	var opts []api.CallOption
	if silent {
		opts = append(opts, api.WithSilentUnauthorized())
	}
	resp, err := g.client.Get(ctx, mePath, opts...)
	if err != nil {
		return nil, err
	}
	return decodeUser(resp)
}

func decodeUser(resp *api.Response) (*session.User, error) {
	var payload userPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.User == nil {
		return nil, ErrInvalidResponse
	}
	return payload.User, nil
}
