package models

import (
	"encoding/json"
	"time"
)

// CredentialRecord is the OAuth2 credential set persisted in the token file.
type CredentialRecord struct {
	// AccessToken is the bearer token attached to authenticated API calls.
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged for a new access token. The vendor rotates it on every refresh.
	RefreshToken string `json:"refresh_token"`

	// TokenType is normally "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds, counted from RefreshTime.
	ExpiresIn int64 `json:"expires_in"`

	// Scope is the granted scope, when the vendor reports it.
	Scope string `json:"scope,omitempty"`

	// APIKey is the application client id. Token responses never carry it.
	APIKey string `json:"api_key"`

	// RefreshTime is the unix time of the last successful refresh. Zero means never.
	RefreshTime int64 `json:"refresh_time,omitempty"`
}

// UnmarshalJSON accepts a fractional refresh_time, as written by older token
// files, and truncates it to whole seconds.
func (c *CredentialRecord) UnmarshalJSON(data []byte) error {
	type plain CredentialRecord
	aux := struct {
		*plain
		RefreshTime *float64 `json:"refresh_time,omitempty"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.RefreshTime = 0
	if aux.RefreshTime != nil {
		c.RefreshTime = int64(*aux.RefreshTime)
	}
	return nil
}

// ExpiresAt returns the absolute expiry instant of the access token.
func (c CredentialRecord) ExpiresAt() time.Time {
	return time.Unix(c.RefreshTime+c.ExpiresIn, 0)
}

// IsStale reports whether the record must be refreshed before use at now.
// A record that has never been refreshed is always stale.
func (c CredentialRecord) IsStale(now time.Time) bool {
	if c.RefreshTime == 0 {
		return true
	}
	return !now.Before(c.ExpiresAt())
}

// TokenResponse is the body returned by the token endpoint for both the PIN
// grant and the refresh grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// PinResponse is the body returned by the authorize endpoint.
type PinResponse struct {
	EcobeePin string `json:"ecobeePin"`
	Code      string `json:"code"`
	Scope     string `json:"scope"`
	ExpiresIn int64  `json:"expires_in"`
	Interval  int64  `json:"interval"`
}
