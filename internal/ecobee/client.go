package ecobee

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/benmeehan/ecobee-ts/internal/models"
)

// DefaultBaseURL is the vendor API root.
const DefaultBaseURL = "https://api.ecobee.com"

var ErrNoTokenSource = errors.New("authenticated call without a token source")

// APIError is an error payload returned by the vendor.
type APIError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
	URI         string `json:"error_uri,omitempty"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return "ecobee api error: " + e.Code
	}
	return fmt.Sprintf("ecobee api error: %s (%s)", e.Description, e.Code)
}

// TokenSource supplies credentials for authenticated calls.
type TokenSource interface {
	EnsureValid(ctx context.Context) (models.CredentialRecord, error)
}

// HTTPDoer is the part of *http.Client the transport uses.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is a classified API response. When NoData reports true the vendor
// answered with a non-zero status code and Payload is empty.
type Result struct {
	Payload json.RawMessage
	Status  models.Status
}

func (r *Result) NoData() bool {
	return r.Status.Code != 0
}

// Client issues calls to the vendor REST API.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	tokens     TokenSource
	logger     zerolog.Logger
}

// NewClient creates a client for baseURL. A nil httpClient gets a 30 second timeout client.
func NewClient(baseURL string, httpClient HTTPDoer, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// UseTokenSource sets where bearer tokens come from. The credential manager
// refreshes through this same client, so it is attached after construction.
func (c *Client) UseTokenSource(tokens TokenSource) {
	c.tokens = tokens
}

// Call sends one request to endpoint with params encoded in the query string.
// The bearer token is attached only when authRequired is set.
func (c *Client) Call(ctx context.Context, endpoint string, params url.Values, method string, authRequired bool) (*Result, error) {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	if authRequired {
		if c.tokens == nil {
			return nil, ErrNoTokenSource
		}
		creds, err := c.tokens.EnsureValid(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	}

	c.logger.Debug().Str("method", method).Str("endpoint", endpoint).Bool("auth", authRequired).Msg("Calling ecobee API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}

	return c.classify(endpoint, resp.StatusCode, body)
}

// classify sorts a response body into an API error, a soft no-data result or a payload.
func (c *Client) classify(endpoint string, httpStatus int, body []byte) (*Result, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return nil, fmt.Errorf("unexpected response from %s (HTTP %d): %.200s", endpoint, httpStatus, bytes.TrimSpace(body))
	}

	if _, ok := envelope["error"]; ok {
		apiErr := &APIError{}
		if err := json.Unmarshal(body, apiErr); err != nil {
			return nil, fmt.Errorf("malformed error response from %s: %w", endpoint, err)
		}
		return nil, apiErr
	}

	if raw, ok := envelope["status"]; ok {
		var status models.Status
		if err := json.Unmarshal(raw, &status); err != nil {
			return nil, fmt.Errorf("malformed status in response from %s: %w", endpoint, err)
		}
		if status.Code != 0 {
			c.logger.Warn().Int("code", status.Code).Str("message", status.Message).Str("endpoint", endpoint).Msg("Non-zero status code")
			return &Result{Status: status}, nil
		}
	}

	return &Result{Payload: body}, nil
}
