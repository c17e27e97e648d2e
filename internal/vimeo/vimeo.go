// Package vimeo updates the privacy password on a Vimeo video.
package vimeo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const apiBase = "https://api.vimeo.com"

type Client struct {
	accessToken string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		accessToken: accessToken,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c.accessToken != ""
}

// VideoURL returns the public page for a video id.
func VideoURL(videoID string) string {
	return "https://vimeo.com/" + videoID
}

type privacyUpdate struct {
	Password string `json:"password"`
	Privacy  struct {
		View string `json:"view"`
	} `json:"privacy"`
}

// SetPassword switches the video to password privacy with the given password.
func (c *Client) SetPassword(ctx context.Context, videoID, password string) error {
	if !c.Configured() {
		return fmt.Errorf("vimeo client not configured: missing access token")
	}
	if videoID == "" {
		return fmt.Errorf("set video password: empty video id")
	}

	var payload privacyUpdate
	payload.Password = password
	payload.Privacy.View = "password"

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal privacy update: %w", err)
	}

	endpoint := apiBase + "/videos/" + url.PathEscape(videoID)
	req, err := http.NewRequestWithContext(ctx, "PATCH", endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.vimeo.*+json;version=3.4")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update video password: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("vimeo API error: status %d", resp.StatusCode)
	}
	return nil
}
