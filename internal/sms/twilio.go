// Package sms sends text messages through the Twilio REST API.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukerupert/flock/internal/phone"
)

const apiBase = "https://api.twilio.com/2010-04-01"

type Client struct {
	accountSID string
	authToken  string
	fromNumber string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(accountSID, authToken, fromNumber string, opts ...Option) *Client {
	c := &Client{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if all Twilio credentials are present.
func (c *Client) Configured() bool {
	return c.accountSID != "" && c.authToken != "" && c.fromNumber != ""
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send delivers body to the given phone number. The number is normalized to
// E.164 before sending.
func (c *Client) Send(ctx context.Context, to, body string) error {
	if !c.Configured() {
		return fmt.Errorf("sms client not configured: missing twilio credentials")
	}
	if !phone.Valid(to) {
		return fmt.Errorf("send sms: invalid phone number %q", to)
	}

	form := url.Values{}
	form.Set("To", phone.E164(to))
	form.Set("From", c.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", apiBase, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var te twilioError
		if json.NewDecoder(resp.Body).Decode(&te) == nil && te.Message != "" {
			return fmt.Errorf("twilio API error: status %d: %s", resp.StatusCode, te.Message)
		}
		return fmt.Errorf("twilio API error: status %d", resp.StatusCode)
	}
	return nil
}
