package rules

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurumi-project/warden/dispatcher"
	"github.com/kurumi-project/warden/ledger"
	"github.com/kurumi-project/warden/policystore"
)

// threshold 5 messages / 10 seconds; six messages in eight seconds produce
// exactly one flood violation, recorded on the sixth message
func TestFloodMessageRule(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, capture := engineFixture()

	warnAt := 1.0
	_, err := eng.Policies.Set(ctx, "g1", policystore.PolicyPatch{WarnAt: &warnAt})
	require.NoError(err)

	base := time.Now().Add(-8 * time.Second)
	for i := 0; i < 6; i++ {
		at := base.Add(time.Duration(i) * 1500 * time.Millisecond)
		text := fmt.Sprintf("message number %d", i)
		assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", text, at)))
	}

	snap, err := eng.Ledger.Snapshot(ctx, "g1", "u1")
	require.NoError(err)
	assert.Equal(1, snap.Records)

	require.Len(capture.All(), 1)
	act := capture.All()[0]
	assert.Equal(dispatcher.ActionWarn, act.Kind)
	assert.Equal(ledger.KindFlood, act.Reason)
}

func TestFloodRequiresSameChannel(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := engineFixture()

	now := time.Now()
	for i := 0; i < 8; i++ {
		channel := fmt.Sprintf("c%d", i%4)
		text := fmt.Sprintf("spread out message %d", i)
		assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", channel, text, now.Add(time.Duration(i)*time.Second))))
	}

	snap, err := eng.Ledger.Snapshot(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(0, snap.Records)
}

func TestFloodWindowExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := engineFixture()

	// six messages, but spread over a minute: never more than the
	// threshold inside any 10s window
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 6; i++ {
		at := base.Add(time.Duration(i) * 11 * time.Second)
		text := fmt.Sprintf("slow message %d", i)
		assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", text, at)))
	}

	snap, err := eng.Ledger.Snapshot(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(0, snap.Records)
}
