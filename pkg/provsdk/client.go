package provsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a small SDK for the provisioning service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SubmitRegistration creates a registration instance and starts the first
// attempt. The returned snapshot is immediate; poll GetRegistration for the
// terminal phase.
func (c *Client) SubmitRegistration(ctx context.Context, req SubmitRegistrationRequest) (RegistrationResponse, error) {
	var out RegistrationResponse
	err := c.do(ctx, http.MethodPost, "/v1/registrations", req, "", &out, http.StatusAccepted)
	return out, err
}

// GetRegistration returns the current snapshot of a registration instance.
func (c *Client) GetRegistration(ctx context.Context, id string) (RegistrationResponse, error) {
	var out RegistrationResponse
	err := c.do(ctx, http.MethodGet, "/v1/registrations/"+id, nil, "", &out, http.StatusOK)
	return out, err
}

// ConfirmRegistration asks for an immediate verification re-check, for the
// "I clicked the link" button. Throttled server-side; absorbed calls still
// return the current snapshot.
func (c *Client) ConfirmRegistration(ctx context.Context, id string) (RegistrationResponse, error) {
	var out RegistrationResponse
	err := c.do(ctx, http.MethodPost, "/v1/registrations/"+id+"/confirm", nil, "", &out, http.StatusOK)
	return out, err
}

// ResetRegistration returns the instance to idle so it can be resubmitted.
func (c *Client) ResetRegistration(ctx context.Context, id string) (RegistrationResponse, error) {
	var out RegistrationResponse
	err := c.do(ctx, http.MethodPost, "/v1/registrations/"+id+"/reset", nil, "", &out, http.StatusOK)
	return out, err
}

// LoginCheck runs the orphan check for the identity behind the access
// token. A *APIError with code check_unavailable means the check could not
// complete and the login must be denied.
func (c *Client) LoginCheck(ctx context.Context, accessToken string) (LoginCheckResponse, error) {
	var out LoginCheckResponse
	err := c.do(ctx, http.MethodPost, "/v1/login/check", nil, accessToken, &out, http.StatusOK)
	return out, err
}

// GetLiveness reports basic service health.
func (c *Client) GetLiveness(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/livez", nil, "", &out, http.StatusOK)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, target any, expectedStatus int) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return decodeError(resp)
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns a non-success response into a *APIError, falling back
// to a generic one when the body is not the expected shape.
func decodeError(resp *http.Response) error {
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Code == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       ErrorCodeServerError,
			Message:    fmt.Sprintf("unexpected response status %d", resp.StatusCode),
		}
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       body.Code,
		Message:    body.Message,
	}
}
