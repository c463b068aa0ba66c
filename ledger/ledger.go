package ledger

import (
	"context"
	"time"
)

// Detector kinds recorded against a user.
const (
	KindProfanity = "profanity"
	KindFlood     = "flood"
	KindDuplicate = "duplicate"
	KindMention   = "mention-flood"
	KindLinkScam  = "link-scam"
	KindIdentity  = "identity"
)

// A single detector finding. Immutable once recorded; stops contributing to
// the aggregate (and is pruned) once older than its decay horizon.
type Violation struct {
	Kind      string        `json:"kind"`
	Weight    float64       `json:"weight"`
	MessageID string        `json:"message_id,omitempty"`
	Note      string        `json:"note,omitempty"`
	Horizon   time.Duration `json:"horizon"`
	CreatedAt time.Time     `json:"created_at"`
}

// Remaining contribution of the record at time t: linear decay from the full
// weight down to exactly zero at the horizon.
func (v *Violation) ContributionAt(t time.Time) float64 {
	elapsed := t.Sub(v.CreatedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if v.Horizon <= 0 || elapsed >= v.Horizon {
		return 0
	}
	return v.Weight * (1 - float64(elapsed)/float64(v.Horizon))
}

func (v *Violation) ExpiredAt(t time.Time) bool {
	return !t.Before(v.CreatedAt.Add(v.Horizon))
}

// Read-only view of one (guild, user) ledger entry.
type Snapshot struct {
	GuildID      string    `json:"guild_id"`
	UserID       string    `json:"user_id"`
	Score        float64   `json:"score"`
	Records      int       `json:"records"`
	LastAction   string    `json:"last_action,omitempty"`
	LastActionAt time.Time `json:"last_action_at,omitempty"`
}

// Per-(guild, user) rolling violation state. Implementations prune expired
// records lazily on access; there is no background sweep.
type Ledger interface {
	// Record appends the violations and returns the new decayed aggregate
	// score.
	Record(ctx context.Context, guildID, userID string, violations ...Violation) (float64, error)
	Snapshot(ctx context.Context, guildID, userID string) (Snapshot, error)
	// MarkAction updates last-action state after an enforcement action is
	// confirmed applied. It must not disturb recorded violations.
	MarkAction(ctx context.Context, guildID, userID, kind string, at time.Time) error
	// Reset clears all history for the pair (administrative override, eg
	// after a manual appeal).
	Reset(ctx context.Context, guildID, userID string) error
}

func pairKey(guildID, userID string) string {
	return guildID + "/" + userID
}

func aggregate(records []Violation, now time.Time) (float64, []Violation) {
	kept := records[:0]
	var sum float64
	for _, r := range records {
		if r.ExpiredAt(now) {
			continue
		}
		sum += r.ContributionAt(now)
		kept = append(kept, r)
	}
	return sum, kept
}
