package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kurumi-project/warden/policystore"
)

func TestProfanityMessageRule(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, capture := engineFixture()

	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", "perfectly fine message", time.Now())))
	snap, err := eng.Ledger.Snapshot(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(0, snap.Records)

	// plain match
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u2", "c1", "you absolute slur", time.Now())))
	snap, err = eng.Ledger.Snapshot(ctx, "g1", "u2")
	assert.NoError(err)
	assert.Equal(1, snap.Records)

	// plural and leetspeak forms
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u3", "c1", "bunch of 5lurs", time.Now())))
	snap, err = eng.Ledger.Snapshot(ctx, "g1", "u3")
	assert.NoError(err)
	assert.Equal(1, snap.Records)

	// spacing trick, caught by the slug substring pass
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u4", "c1", "w o r s t w o r d", time.Now())))
	snap, err = eng.Ledger.Snapshot(ctx, "g1", "u4")
	assert.NoError(err)
	assert.Equal(1, snap.Records)

	assert.Empty(capture.All())
}

func TestProfanitySeverityScalesWithMatches(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := engineFixture()

	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", "slur and worstword together", time.Now())))
	snap, err := eng.Ledger.Snapshot(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(1, snap.Records)
	weight := eng.Policies.Get(ctx, "g1").ProfanityWeight
	assert.InDelta(2*weight, snap.Score, 0.001)
}

func TestProfanityDisabledByPolicy(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := engineFixture()

	off := false
	_, err := eng.Policies.Set(ctx, "g1", policystore.PolicyPatch{ProfanityEnabled: &off})
	assert.NoError(err)

	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", "a slur", time.Now())))
	snap, err := eng.Ledger.Snapshot(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(0, snap.Records)
}
