package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type memEntry struct {
	lk           sync.Mutex
	records      []Violation
	lastAction   string
	lastActionAt time.Time
}

// In-process ledger. Entries are created lazily on first violation and
// guarded individually, so unrelated (guild, user) pairs never contend.
type MemLedger struct {
	entries *xsync.MapOf[string, *memEntry]
}

var _ Ledger = (*MemLedger)(nil)

func NewMemLedger() *MemLedger {
	return &MemLedger{
		entries: xsync.NewMapOf[string, *memEntry](),
	}
}

func (l *MemLedger) entry(guildID, userID string) *memEntry {
	e, _ := l.entries.LoadOrStore(pairKey(guildID, userID), &memEntry{})
	return e
}

func (l *MemLedger) Record(ctx context.Context, guildID, userID string, violations ...Violation) (float64, error) {
	e := l.entry(guildID, userID)
	e.lk.Lock()
	defer e.lk.Unlock()

	now := time.Now()
	for _, v := range violations {
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		e.records = append(e.records, v)
	}
	sum, kept := aggregate(e.records, now)
	e.records = kept
	return sum, nil
}

func (l *MemLedger) Snapshot(ctx context.Context, guildID, userID string) (Snapshot, error) {
	e := l.entry(guildID, userID)
	e.lk.Lock()
	defer e.lk.Unlock()

	now := time.Now()
	sum, kept := aggregate(e.records, now)
	e.records = kept
	return Snapshot{
		GuildID:      guildID,
		UserID:       userID,
		Score:        sum,
		Records:      len(kept),
		LastAction:   e.lastAction,
		LastActionAt: e.lastActionAt,
	}, nil
}

func (l *MemLedger) MarkAction(ctx context.Context, guildID, userID, kind string, at time.Time) error {
	e := l.entry(guildID, userID)
	e.lk.Lock()
	defer e.lk.Unlock()

	e.lastAction = kind
	e.lastActionAt = at
	return nil
}

func (l *MemLedger) Reset(ctx context.Context, guildID, userID string) error {
	l.entries.Delete(pairKey(guildID, userID))
	return nil
}
