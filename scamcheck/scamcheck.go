// Package scamcheck looks up URLs against an external threat-intel API
// (Safe-Browsing-style) and memoizes verdicts, so the link-scam detector can
// run on every message without burning API quota on repeated links.
package scamcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/kurumi-project/warden/cachestore"
)

var urlPattern = regexp.MustCompile(`https?://(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}(?::\d+)?(?:/[^\s]*)?`)

// ExtractURLs pulls candidate URLs out of raw message text.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

const (
	verdictSafe   = "safe"
	verdictThreat = "threat"
)

type Client struct {
	Endpoint string
	APIKey   string
	HTTP     *http.Client
	Cache    cachestore.CacheStore
	Logger   *slog.Logger
}

func NewClient(endpoint, apiKey string, cache cachestore.CacheStore) *Client {
	return &Client{
		Endpoint: endpoint,
		APIKey:   apiKey,
		HTTP:     robustHTTPClient(),
		Cache:    cache,
		Logger:   slog.Default().With("system", "scamcheck"),
	}
}

// re-writes retry client ERROR to WARN level (because of retries)
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}
func (l leveledSlog) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}
func (l leveledSlog) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}
func (l leveledSlog) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}

// HTTP client with retries on connection errors, 5xx, and 429 (respecting
// Retry-After), wrapped behind the stdlib client interface.
func robustHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{slog.Default().With("system", "scamcheck")})
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	return client
}

type threatEntry struct {
	URL string `json:"url"`
}

type threatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []threatEntry `json:"threatEntries"`
}

type lookupRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type lookupResponse struct {
	Matches []struct {
		Threat threatEntry `json:"threat"`
	} `json:"matches"`
}

// CheckURLs returns the subset of urls identified as threats. Cached
// verdicts are served without an API call; uncached URLs are looked up in
// one batch. A missing API key or API failure degrades to "no threats" (the
// detector must never block the pipeline).
func (c *Client) CheckURLs(ctx context.Context, urls []string) map[string]bool {
	threats := make(map[string]bool)
	if len(urls) == 0 {
		return threats
	}

	var uncached []string
	for _, u := range urls {
		v, err := c.Cache.Get(ctx, "scam-url", u)
		if err != nil {
			c.Logger.Warn("verdict cache read failed", "err", err)
		}
		switch v {
		case verdictThreat:
			threats[u] = true
		case verdictSafe:
			// known good
		default:
			uncached = append(uncached, u)
		}
	}
	if len(uncached) == 0 || c.APIKey == "" {
		return threats
	}

	found, err := c.lookup(ctx, uncached)
	if err != nil {
		c.Logger.Error("threat lookup failed", "err", err, "urls", len(uncached))
		return threats
	}

	for _, u := range uncached {
		verdict := verdictSafe
		if found[u] {
			verdict = verdictThreat
			threats[u] = true
		}
		if err := c.Cache.Set(ctx, "scam-url", u, verdict); err != nil {
			c.Logger.Warn("verdict cache write failed", "err", err)
		}
	}
	return threats
}

func (c *Client) lookup(ctx context.Context, urls []string) (map[string]bool, error) {
	var payload lookupRequest
	payload.Client.ClientID = "warden"
	payload.Client.ClientVersion = "1.0.0"
	payload.ThreatInfo = threatInfo{
		ThreatTypes:      []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE"},
		PlatformTypes:    []string{"ANY_PLATFORM"},
		ThreatEntryTypes: []string{"URL"},
	}
	for _, u := range urls {
		payload.ThreatInfo.ThreatEntries = append(payload.ThreatInfo.ThreatEntries, threatEntry{URL: u})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"?key="+c.APIKey, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("threat lookup API returned status %d", resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(out.Matches))
	for _, m := range out.Matches {
		found[m.Threat.URL] = true
	}
	return found, nil
}
