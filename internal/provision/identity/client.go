package identity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lexorahq/provision/pkg/slogx"
)

// Client talks to the identity provider's auth API.
type Client struct {
	http *resty.Client
}

// NewClient builds a provider client. apiKey is the provider's public anon
// key, sent on every request.
func NewClient(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", apiKey)

	return &Client{http: c}
}

type signUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// request builds a resty request carrying the context's correlation id so
// the provider's logs line up with ours.
func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if corrID := slogx.CorrelationID(ctx); !corrID.IsZero() {
		req.SetHeader("X-Correlation-ID", corrID.String())
	}
	return req
}

// SignUp registers a new identity. The provider sends the confirmation
// email itself; the returned identity is unconfirmed until the human acts.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (Identity, error) {
	resp, err := c.request(ctx).
		SetBody(signUpRequest{Email: email, Password: password, Data: metadata}).
		Post("/signup")
	if err != nil {
		return Identity{}, networkError(err)
	}
	if resp.IsError() {
		return Identity{}, parseError(resp)
	}

	var identity Identity
	if err := json.Unmarshal(resp.Body(), &identity); err != nil {
		return Identity{}, networkError(err)
	}
	return identity, nil
}

// SignInWithPassword performs a password grant. An unconfirmed identity
// yields a not-confirmed error, which callers treat as a pending state, not
// a failure.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	resp, err := c.request(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(passwordGrantRequest{Email: email, Password: password}).
		Post("/token")
	if err != nil {
		return Session{}, networkError(err)
	}
	if resp.IsError() {
		return Session{}, parseError(resp)
	}

	var session Session
	if err := json.Unmarshal(resp.Body(), &session); err != nil {
		return Session{}, networkError(err)
	}
	return session, nil
}

// GetUser fetches the identity behind an access token. Used to re-check the
// confirmation timestamp while polling.
func (c *Client) GetUser(ctx context.Context, accessToken string) (Identity, error) {
	resp, err := c.request(ctx).
		SetAuthToken(accessToken).
		Get("/user")
	if err != nil {
		return Identity{}, networkError(err)
	}
	if resp.IsError() {
		return Identity{}, parseError(resp)
	}

	var identity Identity
	if err := json.Unmarshal(resp.Body(), &identity); err != nil {
		return Identity{}, networkError(err)
	}
	return identity, nil
}

func parseError(resp *resty.Response) *Error {
	var body errorBody
	_ = json.Unmarshal(resp.Body(), &body) // best effort; classify handles blanks
	return classify(resp.StatusCode(), body)
}
