package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuplicateExactRepeat(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := engineFixture()

	now := time.Now()
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", "buy my thing at example dot com", now)))
	// repeat in a different channel still counts
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c2", "Buy my THING at example dot com!!", now.Add(time.Minute))))

	snap, err := eng.Ledger.Snapshot(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(1, snap.Records)
}

func TestDuplicateNearRepeat(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := engineFixture()

	now := time.Now()
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", "join my server now for free prizes and rewards today claim your gift before time runs out friends everyone tonight", now)))
	// one token changed out of twenty; similarity just above the cutoff
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", "join my server now for free prizes and rewards today claim your gift before time runs out friends everyone tomorrow", now.Add(time.Minute))))

	snap, err := eng.Ledger.Snapshot(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(1, snap.Records)
}

func TestDuplicateShortMessagesNotNearMatched(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := engineFixture()

	// two-token messages only trip the exact path, never the similarity path
	now := time.Now()
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", "good morning", now)))
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", "good evening", now.Add(time.Minute))))

	snap, err := eng.Ledger.Snapshot(ctx, "g1", "u1")
	assert.NoError(err)
	assert.Equal(0, snap.Records)
}

func TestDuplicateIsolatedPerUser(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, _ := engineFixture()

	now := time.Now()
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u1", "c1", "same text from different people", now)))
	assert.NoError(eng.ProcessMessageEvent(ctx, nextMessage("g1", "u2", "c1", "same text from different people", now.Add(time.Second))))

	for _, user := range []string{"u1", "u2"} {
		snap, err := eng.Ledger.Snapshot(ctx, "g1", user)
		assert.NoError(err)
		assert.Equal(0, snap.Records)
	}
}
