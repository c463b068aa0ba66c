// Package platform is a minimal REST client for the chat platform's
// moderation endpoints: message deletion, member warnings, timeouts, kicks,
// and bans.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kurumi-project/warden/dispatcher"
)

// RESTClient implements the platform action calls over the HTTP API. Retry
// policy lives in the dispatcher, so calls here are single-shot; the only
// local resilience is the request timeout on the underlying client.
type RESTClient struct {
	Host     string
	BotToken string
	HTTP     *http.Client
}

var _ dispatcher.PlatformClient = (*RESTClient)(nil)

func NewRESTClient(host, botToken string) *RESTClient {
	return &RESTClient{
		Host:     host,
		BotToken: botToken,
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *RESTClient) DeleteMessage(ctx context.Context, guildID, channelID, messageID string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *RESTClient) WarnMember(ctx context.Context, guildID, channelID, userID, reason string) error {
	path := fmt.Sprintf("/channels/%s/messages", channelID)
	body := map[string]string{
		"content": fmt.Sprintf("<@%s> you have been warned by automod: %s", userID, reason),
	}
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *RESTClient) TimeoutMember(ctx context.Context, guildID, userID string, duration time.Duration, reason string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	body := map[string]string{
		"communication_disabled_until": time.Now().Add(duration).UTC().Format(time.RFC3339),
		"reason":                       reason,
	}
	return c.do(ctx, http.MethodPatch, path, body)
}

func (c *RESTClient) KickMember(ctx context.Context, guildID, userID, reason string) error {
	path := fmt.Sprintf("/guilds/%s/members/%s", guildID, userID)
	return c.do(ctx, http.MethodDelete, path, map[string]string{"reason": reason})
}

func (c *RESTClient) BanMember(ctx context.Context, guildID, userID, reason string) error {
	path := fmt.Sprintf("/guilds/%s/bans/%s", guildID, userID)
	return c.do(ctx, http.MethodPut, path, map[string]string{"reason": reason})
}

func (c *RESTClient) do(ctx context.Context, method, path string, body any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewBuffer(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Host+path, buf)
	if err != nil {
		return err
	}
	req.Header.Add("Authorization", "Bot "+c.BotToken)
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == 429 {
		return fmt.Errorf("platform rate limited: %s %s", method, path)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("platform API error (status %d): %s %s", resp.StatusCode, method, path)
	}
	return nil
}
