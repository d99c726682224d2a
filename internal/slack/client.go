// Package slack wraps the parts of the Slack platform the bot touches: the
// Web API for posting and user lookup, and the event payloads delivered to
// the events endpoint.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

// Client calls the Slack Web API. All calls pass through a shared rate
// limiter sized for Slack's per-method tier guidance.
type Client struct {
	// BaseURL is overridable so tests can point at a local server.
	BaseURL string

	botToken   string
	httpClient *http.Client
	limiter    *rate.Limiter
	nameCache  *cache.Cache
}

// NewClient creates a Web API client for the given bot token.
func NewClient(botToken string) *Client {
	return &Client{
		BaseURL:  DefaultBaseURL,
		botToken: botToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:   rate.NewLimiter(rate.Limit(1), 3),
		nameCache: cache.New(12*time.Hour, 1*time.Hour),
	}
}

// PostMessage posts text to a channel and returns the new message timestamp.
func (c *Client) PostMessage(ctx context.Context, channel, text string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := map[string]interface{}{
		"channel": channel,
		"text":    text,
	}
	payloadBytes, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat.postMessage", bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to build Slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to connect to Slack: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		TS    string `json:"ts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("invalid response from Slack: %w", err)
	}
	if !result.OK {
		return "", fmt.Errorf("Slack API error: %s", result.Error)
	}

	log.Printf("💬 [SLACK] Message posted to %s (ts=%s)", channel, result.TS)
	return result.TS, nil
}

// UserDisplayName resolves a user ID to a display name, preferring the
// profile display name, then the real name, then the raw ID. Results are
// cached for twelve hours.
func (c *Client) UserDisplayName(ctx context.Context, userID string) (string, error) {
	if cached, found := c.nameCache.Get(userID); found {
		return cached.(string), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqURL := fmt.Sprintf("%s/users.info?user=%s", c.BaseURL, url.QueryEscape(userID))
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build Slack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to connect to Slack: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		User  struct {
			RealName string `json:"real_name"`
			Profile  struct {
				DisplayName string `json:"display_name"`
			} `json:"profile"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("invalid response from Slack: %w", err)
	}
	if !result.OK {
		return "", fmt.Errorf("Slack API error: %s", result.Error)
	}

	name := result.User.Profile.DisplayName
	if name == "" {
		name = result.User.RealName
	}
	if name == "" {
		name = userID
	}

	c.nameCache.Set(userID, name, cache.DefaultExpiration)
	return name, nil
}

// AuthTest verifies the bot token against the Web API.
func (c *Client) AuthTest(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/auth.test", nil)
	if err != nil {
		return fmt.Errorf("failed to build Slack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to Slack: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		Team  string `json:"team"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("invalid response from Slack: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("Slack API error: %s", result.Error)
	}

	log.Printf("✅ [SLACK] Authenticated against workspace %q", result.Team)
	return nil
}
