package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurumi-project/warden/dispatcher"
	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/ledger"
	"github.com/kurumi-project/warden/policystore"
)

func serverFixture(t *testing.T) (*Server, *engine.Engine, *dispatcher.MemAuditLog) {
	t.Helper()
	eng, _ := engine.EngineTestFixture()
	audit := dispatcher.NewMemAuditLog()
	srv := NewServer(eng, audit, Config{
		Bind:       ":0",
		AdminToken: "secret",
	})
	return srv, eng, audit
}

func adminReq(method, target string, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Authorization", "Bearer secret")
	return req
}

func TestAdminAuthRequired(t *testing.T) {
	assert := assert.New(t)
	srv, _, _ := serverFixture(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/admin/policy/g1", nil))
	assert.Equal(401, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/_health", nil))
	assert.Equal(200, rec.Code)
}

func TestAdminPolicyRoundtrip(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	srv, _, _ := serverFixture(t)

	// unconfigured guild resolves to defaults
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminReq("GET", "/admin/policy/g1", ""))
	require.Equal(200, rec.Code)
	var policy policystore.Policy
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &policy))
	assert.Equal(3.0, policy.WarnAt)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, adminReq("PUT", "/admin/policy/g1", `{"warn_at": 2.0, "flood_max_messages": 3}`))
	require.Equal(200, rec.Code)
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &policy))
	assert.Equal(2.0, policy.WarnAt)
	assert.Equal(3, policy.FloodMaxMessages)
	// unpatched fields keep their defaults
	assert.Equal(5.0, policy.TimeoutAt)

	// out-of-bounds patch is rejected and leaves the policy unchanged
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, adminReq("PUT", "/admin/policy/g1", `{"warn_at": 99.0}`))
	assert.Equal(400, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, adminReq("GET", "/admin/policy/g1", ""))
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &policy))
	assert.Equal(2.0, policy.WarnAt)

	// reset restores defaults
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, adminReq("DELETE", "/admin/policy/g1", ""))
	require.Equal(200, rec.Code)
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &policy))
	assert.Equal(3.0, policy.WarnAt)
}

func TestAdminLedgerEndpoints(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	srv, eng, _ := serverFixture(t)

	_, err := eng.Ledger.Record(ctx, "g1", "u1", ledger.Violation{
		Kind:      ledger.KindFlood,
		Weight:    2.0,
		Horizon:   time.Hour,
		CreatedAt: time.Now(),
	})
	require.NoError(err)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminReq("GET", "/admin/ledger/g1/u1", ""))
	require.Equal(200, rec.Code)
	var snap ledger.Snapshot
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(1, snap.Records)
	assert.InDelta(2.0, snap.Score, 0.001)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, adminReq("POST", "/admin/ledger/g1/u1/reset", ""))
	require.Equal(200, rec.Code)

	snapAfter, err := eng.Ledger.Snapshot(ctx, "g1", "u1")
	require.NoError(err)
	assert.Equal(0, snapAfter.Records)
}

func TestAdminAuditEndpoint(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	srv, _, audit := serverFixture(t)

	for i := 0; i < 3; i++ {
		require.NoError(audit.Append(ctx, dispatcher.AuditRecord{
			Action: dispatcher.Action{
				Kind:    dispatcher.ActionWarn,
				GuildID: "g1",
				UserID:  "u1",
				Reason:  "flood",
			},
			Applied:  true,
			Attempts: 1,
			At:       time.Now(),
		}))
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, adminReq("GET", "/admin/audit/g1?limit=2", ""))
	require.Equal(200, rec.Code)
	var recs []dispatcher.AuditRecord
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &recs))
	assert.Len(recs, 2)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, adminReq("GET", "/admin/audit/g1?limit=bogus", ""))
	assert.Equal(400, rec.Code)
}
