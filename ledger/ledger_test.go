package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestViolationDecay(t *testing.T) {
	assert := assert.New(t)

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	v := Violation{
		Kind:      KindFlood,
		Weight:    2.0,
		Horizon:   time.Hour,
		CreatedAt: start,
	}

	assert.Equal(2.0, v.ContributionAt(start))

	// strictly monotonically decreasing
	prev := v.ContributionAt(start)
	for _, elapsed := range []time.Duration{time.Minute, 10 * time.Minute, 30 * time.Minute, 59 * time.Minute} {
		cur := v.ContributionAt(start.Add(elapsed))
		assert.Less(cur, prev)
		assert.Greater(cur, 0.0)
		prev = cur
	}

	// exactly zero at the horizon, and beyond
	assert.Equal(0.0, v.ContributionAt(start.Add(time.Hour)))
	assert.Equal(0.0, v.ContributionAt(start.Add(2*time.Hour)))

	assert.False(v.ExpiredAt(start.Add(59*time.Minute)))
	assert.True(v.ExpiredAt(start.Add(time.Hour)))
}

func TestMemLedgerRecordAndSnapshot(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	l := NewMemLedger()

	score, err := l.Record(ctx, "guild-1", "user-1", Violation{
		Kind:    KindProfanity,
		Weight:  1.0,
		Horizon: time.Hour,
	})
	assert.NoError(err)
	assert.InDelta(1.0, score, 0.01)

	// two violations from one event are both recorded, score is the sum
	score, err = l.Record(ctx, "guild-1", "user-1",
		Violation{Kind: KindFlood, Weight: 1.0, Horizon: time.Hour},
		Violation{Kind: KindProfanity, Weight: 1.0, Horizon: time.Hour},
	)
	assert.NoError(err)
	assert.InDelta(3.0, score, 0.01)

	snap, err := l.Snapshot(ctx, "guild-1", "user-1")
	assert.NoError(err)
	assert.Equal(3, snap.Records)
	assert.InDelta(3.0, snap.Score, 0.01)

	// entries are never shared across guilds
	other, err := l.Snapshot(ctx, "guild-2", "user-1")
	assert.NoError(err)
	assert.Equal(0.0, other.Score)
	assert.Equal(0, other.Records)
}

func TestMemLedgerLazyPruning(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	l := NewMemLedger()

	// already expired when accessed
	_, err := l.Record(ctx, "guild-1", "user-1", Violation{
		Kind:      KindFlood,
		Weight:    5.0,
		Horizon:   time.Minute,
		CreatedAt: time.Now().Add(-2 * time.Minute),
	})
	assert.NoError(err)

	snap, err := l.Snapshot(ctx, "guild-1", "user-1")
	assert.NoError(err)
	assert.Equal(0.0, snap.Score)
	assert.Equal(0, snap.Records)
}

func TestMemLedgerMarkActionAndReset(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	l := NewMemLedger()
	_, err := l.Record(ctx, "guild-1", "user-1", Violation{Kind: KindFlood, Weight: 4.0, Horizon: time.Hour})
	assert.NoError(err)

	at := time.Now()
	assert.NoError(l.MarkAction(ctx, "guild-1", "user-1", "warn", at))

	snap, err := l.Snapshot(ctx, "guild-1", "user-1")
	assert.NoError(err)
	assert.Equal("warn", snap.LastAction)
	assert.Equal(at, snap.LastActionAt)
	assert.Greater(snap.Score, 0.0)

	assert.NoError(l.Reset(ctx, "guild-1", "user-1"))
	snap, err = l.Snapshot(ctx, "guild-1", "user-1")
	assert.NoError(err)
	assert.Equal(0.0, snap.Score)
	assert.Equal("", snap.LastAction)
}
