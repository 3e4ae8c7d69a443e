// Package geocode is a small client for Google's reverse geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the Geocoding API JSON endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Address is one reverse geocoding result.
type Address struct {
	FormattedAddress string   `json:"formatted_address"`
	PlaceID          string   `json:"place_id"`
	Types            []string `json:"types"`
}

type response struct {
	Results      []Address `json:"results"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message"`
}

// StatusError is returned when the API answers with a status other than
// OK or ZERO_RESULTS.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "geocode: " + e.Status
	}
	return "geocode: " + e.Status + ": " + e.Message
}

// Client performs reverse geocoding requests.
type Client struct {
	// BaseURL overrides DefaultBaseURL, mainly for tests.
	BaseURL string

	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client. apiKey may be empty; the API will then
// refuse most requests with REQUEST_DENIED.
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ReverseGeocode returns the addresses for a coordinate, most specific
// first. No match is an empty slice and no error.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) ([]Address, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%.6f,%.6f", lat, lng))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("geocode: http status %d: %s", resp.StatusCode, body)
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("geocode: parse response: %w", err)
	}

	switch result.Status {
	case "OK":
		return result.Results, nil
	case "ZERO_RESULTS":
		return []Address{}, nil
	default:
		return nil, &StatusError{Status: result.Status, Message: result.ErrorMessage}
	}
}

// FirstAddress returns the formatted address of the best match, or "".
func FirstAddress(addrs []Address) string {
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0].FormattedAddress
}
