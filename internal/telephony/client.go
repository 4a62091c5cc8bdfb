// Package telephony is the outbound-call boundary: a small REST client for
// the provider's Calls API plus the voice-response documents the webhook
// handlers return.
package telephony

import (
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
)

// DefaultBaseURL is the provider's REST API root.
const DefaultBaseURL = "https://api.twilio.com/2010-04-01"

// Sentinel errors for the failure classes the call trigger surfaces to its
// caller. Everything else stays a generic *APIError.
var (
	ErrAuth                  = errors.New("telephony: authentication failed")
	ErrInvalidDestination    = errors.New("telephony: invalid destination number")
	ErrUnverifiedDestination = errors.New("telephony: destination not verified for trial account")
)

// APIError is a structured provider error response.
type APIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Is maps well-known provider error codes onto the package sentinels so
// callers can branch with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Code == 20003 || e.Status == http.StatusUnauthorized
	case ErrInvalidDestination:
		return e.Code == 21211
	case ErrUnverifiedDestination:
		return e.Code == 21608
	}
	return false
}

// Call is the provider's call resource, reduced to the fields we read.
type Call struct {
	SID    string `json:"sid"`
	To     string `json:"to"`
	From   string `json:"from"`
	Status string `json:"status"`
}

// Config configures the REST client.
type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	HTTPClient *http.Client
}

// Client places outbound calls.
type Client struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a telephony client. Credential validation happens in the
// config layer; this constructor trusts its inputs.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger.With().Str("provider", "telephony").Logger(),
	}
}

// PlaceCall dials to and points the provider at webhookURL for call-answer
// instructions. It returns the provider's call identifier.
func (c *Client) PlaceCall(ctx context.Context, to, webhookURL string) (string, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.baseURL, c.accountSID)

	data := url.Values{}
	data.Set("To", to)
	data.Set("From", c.fromNumber)
	data.Set("Url", webhookURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("place call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("place call: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{}
		if err := json.Unmarshal(body, apiErr); err != nil {
			return "", fmt.Errorf("provider error (status %d): %s", resp.StatusCode, string(body))
		}
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode
		}
		c.logger.Error().Int("code", apiErr.Code).Str("to", to).Msg(apiErr.Message)
		return "", apiErr
	}

	var call Call
	if err := json.Unmarshal(body, &call); err != nil {
		return "", fmt.Errorf("parse call resource: %w", err)
	}

	c.logger.Info().Str("sid", call.SID).Str("to", to).Str("status", call.Status).Msg("call placed")
	return call.SID, nil
}
