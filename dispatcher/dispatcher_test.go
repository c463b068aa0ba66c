package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurumi-project/warden/ledger"
)

type mockPlatform struct {
	lk      sync.Mutex
	calls   []string
	failing map[string]error
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{failing: make(map[string]error)}
}

func (m *mockPlatform) record(call string) error {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.calls = append(m.calls, call)
	return m.failing[call]
}

func (m *mockPlatform) callCount(call string) int {
	m.lk.Lock()
	defer m.lk.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockPlatform) DeleteMessage(ctx context.Context, guildID, channelID, messageID string) error {
	return m.record("delete")
}
func (m *mockPlatform) WarnMember(ctx context.Context, guildID, channelID, userID, reason string) error {
	return m.record("warn")
}
func (m *mockPlatform) TimeoutMember(ctx context.Context, guildID, userID string, duration time.Duration, reason string) error {
	return m.record("timeout")
}
func (m *mockPlatform) KickMember(ctx context.Context, guildID, userID, reason string) error {
	return m.record("kick")
}
func (m *mockPlatform) BanMember(ctx context.Context, guildID, userID, reason string) error {
	return m.record("ban")
}

func testDispatcher(client PlatformClient, l ledger.Ledger) *Dispatcher {
	d := NewDispatcher(Config{
		Client:    client,
		Ledger:    l,
		Audit:     NewMemAuditLog(),
		RateLimit: 10_000,
	})
	d.RetryBackoff = time.Millisecond
	return d
}

func TestDispatcherSuccess(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	platform := newMockPlatform()
	l := ledger.NewMemLedger()
	d := testDispatcher(platform, l)

	a := Action{
		Kind:      ActionWarn,
		GuildID:   "guild-1",
		UserID:    "user-1",
		ChannelID: "chan-1",
		Reason:    "flood (score 3.2)",
		Score:     3.2,
		CreatedAt: time.Now(),
	}
	d.process(ctx, a)

	assert.Equal(1, platform.callCount("warn"))

	snap, err := l.Snapshot(ctx, "guild-1", "user-1")
	assert.NoError(err)
	assert.Equal("warn", snap.LastAction)

	recs, err := d.Audit.List(ctx, "guild-1", 10)
	assert.NoError(err)
	if assert.Len(recs, 1) {
		assert.True(recs[0].Applied)
		assert.Equal(1, recs[0].Attempts)
	}
}

func TestDispatcherPlatformFailure(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	platform := newMockPlatform()
	platform.failing["kick"] = fmt.Errorf("missing permissions")
	l := ledger.NewMemLedger()
	d := testDispatcher(platform, l)

	a := Action{
		Kind:    ActionKick,
		GuildID: "guild-1",
		UserID:  "user-1",
		Reason:  "flood (score 8.5)",
		Score:   8.5,
	}
	d.process(ctx, a)

	// bounded retries, then give up
	assert.Equal(3, platform.callCount("kick"))

	// audit shows the failure
	recs, err := d.Audit.List(ctx, "guild-1", 10)
	require.NoError(err)
	require.Len(recs, 1)
	assert.False(recs[0].Applied)
	assert.Equal(3, recs[0].Attempts)
	assert.Contains(recs[0].Error, "missing permissions")

	// ledger last-action left un-advanced, so the next violation
	// re-attempts the same tier
	snap, err := l.Snapshot(ctx, "guild-1", "user-1")
	assert.NoError(err)
	assert.Equal("", snap.LastAction)

	// same action succeeds once the platform recovers
	delete(platform.failing, "kick")
	d.process(ctx, a)
	snap, err = l.Snapshot(ctx, "guild-1", "user-1")
	assert.NoError(err)
	assert.Equal("kick", snap.LastAction)
}

func TestDispatcherDeleteMessageBestEffort(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	platform := newMockPlatform()
	platform.failing["delete"] = fmt.Errorf("message not found")
	l := ledger.NewMemLedger()
	d := testDispatcher(platform, l)

	a := Action{
		Kind:          ActionWarn,
		GuildID:       "guild-1",
		UserID:        "user-1",
		ChannelID:     "chan-1",
		MessageID:     "msg-1",
		DeleteMessage: true,
	}
	d.process(ctx, a)

	// deletion failed but the member action still applied
	assert.Equal(1, platform.callCount("delete"))
	assert.Equal(1, platform.callCount("warn"))
	snap, err := l.Snapshot(ctx, "guild-1", "user-1")
	assert.NoError(err)
	assert.Equal("warn", snap.LastAction)
}

func TestDispatcherInflightGuard(t *testing.T) {
	assert := assert.New(t)

	platform := newMockPlatform()
	l := ledger.NewMemLedger()
	d := testDispatcher(platform, l)

	a := Action{Kind: ActionWarn, GuildID: "guild-1", UserID: "user-1"}
	assert.NoError(d.Enqueue(a))
	// second enqueue for the same pair is dropped while the first is queued
	assert.NoError(d.Enqueue(a))
	assert.Len(d.queue, 1)

	// a different pair is unaffected
	b := Action{Kind: ActionWarn, GuildID: "guild-1", UserID: "user-2"}
	assert.NoError(d.Enqueue(b))
	assert.Len(d.queue, 2)
}
