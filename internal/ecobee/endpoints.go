package ecobee

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/benmeehan/ecobee-ts/internal/models"
)

const (
	endpointAuthorize  = "authorize"
	endpointToken      = "token"
	endpointThermostat = "1/thermostat"
)

// RequestPIN asks for an application PIN the account owner enters in the web portal.
func (c *Client) RequestPIN(ctx context.Context, apiKey, scope string) (models.PinResponse, error) {
	var pin models.PinResponse
	res, err := c.Call(ctx, endpointAuthorize, url.Values{
		"response_type": {"ecobeePin"},
		"client_id":     {apiKey},
		"scope":         {scope},
	}, http.MethodGet, false)
	if err != nil {
		return pin, err
	}
	if err := decodePayload(res, &pin); err != nil {
		return pin, err
	}
	return pin, nil
}

// ExchangePIN trades the authorization code behind a PIN for the first token pair.
func (c *Client) ExchangePIN(ctx context.Context, apiKey, code string) (models.TokenResponse, error) {
	return c.token(ctx, url.Values{
		"grant_type": {"ecobeePin"},
		"client_id":  {apiKey},
		"code":       {code},
	})
}

// Refresh runs the refresh grant. The response never includes the api key.
func (c *Client) Refresh(ctx context.Context, refreshToken, apiKey string) (models.TokenResponse, error) {
	return c.token(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {apiKey},
	})
}

func (c *Client) token(ctx context.Context, params url.Values) (models.TokenResponse, error) {
	var tokens models.TokenResponse
	res, err := c.Call(ctx, endpointToken, params, http.MethodPost, false)
	if err != nil {
		return tokens, err
	}
	if err := decodePayload(res, &tokens); err != nil {
		return tokens, err
	}
	return tokens, nil
}

// ListThermostats fetches the thermostats matching sel. A nil listing with a
// non-nil status means the vendor reported no data for this call.
func (c *Client) ListThermostats(ctx context.Context, sel models.Selection) (*models.ThermostatListing, *models.Status, error) {
	body, err := json.Marshal(struct {
		Selection models.Selection `json:"selection"`
	}{sel})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode selection: %w", err)
	}

	res, err := c.Call(ctx, endpointThermostat, url.Values{
		"format": {"json"},
		"body":   {string(body)},
	}, http.MethodGet, true)
	if err != nil {
		return nil, nil, err
	}
	if res.NoData() {
		return nil, &res.Status, nil
	}

	var listing models.ThermostatListing
	if err := json.Unmarshal(res.Payload, &listing); err != nil {
		return nil, nil, fmt.Errorf("failed to decode thermostat listing: %w", err)
	}
	return &listing, &listing.Status, nil
}

// decodePayload unmarshals a successful result. Setup and token calls have no
// use for a no-data answer, so it is turned into an error here.
func decodePayload(res *Result, v any) error {
	if res.NoData() {
		return fmt.Errorf("ecobee returned status %d: %s", res.Status.Code, res.Status.Message)
	}
	if err := json.Unmarshal(res.Payload, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
