package scamcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kurumi-project/warden/cachestore"
)

func TestExtractURLs(t *testing.T) {
	assert := assert.New(t)

	assert.Empty(ExtractURLs("no links here"))
	assert.Equal(
		[]string{"https://example.com/a", "http://evil.example.org"},
		ExtractURLs("check https://example.com/a and http://evil.example.org now"),
	)
}

func TestCheckURLsCachesVerdicts(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var apiCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		var req lookupRequest
		assert.NoError(json.NewDecoder(r.Body).Decode(&req))
		var out lookupResponse
		for _, e := range req.ThreatInfo.ThreatEntries {
			if e.URL == "http://evil.example.org" {
				out.Matches = append(out.Matches, struct {
					Threat threatEntry `json:"threat"`
				}{Threat: threatEntry{URL: e.URL}})
			}
		}
		assert.NoError(json.NewEncoder(w).Encode(out))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", cachestore.NewMemCacheStore(100, time.Minute))

	threats := c.CheckURLs(ctx, []string{"http://evil.example.org", "https://fine.example.com"})
	assert.True(threats["http://evil.example.org"])
	assert.False(threats["https://fine.example.com"])
	assert.Equal(int64(1), apiCalls.Load())

	// both verdicts now served from cache
	threats = c.CheckURLs(ctx, []string{"http://evil.example.org", "https://fine.example.com"})
	assert.True(threats["http://evil.example.org"])
	assert.Equal(int64(1), apiCalls.Load())
}

func TestCheckURLsNoKeyDegrades(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	c := NewClient("http://unreachable.invalid", "", cachestore.NewMemCacheStore(100, time.Minute))
	assert.Empty(c.CheckURLs(ctx, []string{"https://example.com"}))
}
