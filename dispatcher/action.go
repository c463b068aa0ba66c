package dispatcher

import (
	"context"
	"time"
)

// Enforcement action kinds, in escalation order.
type ActionKind string

const (
	ActionWarn    ActionKind = "warn"
	ActionTimeout ActionKind = "timeout"
	ActionKick    ActionKind = "kick"
	ActionBan     ActionKind = "ban"
)

// A decided enforcement action. Emitted by the escalation logic and consumed
// here; it is a fact recorded to the audit trail, not mutable state.
type Action struct {
	Kind    ActionKind `json:"kind"`
	GuildID string     `json:"guild_id"`
	UserID  string     `json:"user_id"`
	// channel and message which triggered the action, for warnings and
	// message deletion
	ChannelID string `json:"channel_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	// detector kind(s) + score
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
	// only meaningful for ActionTimeout
	TimeoutFor time.Duration `json:"timeout_for,omitempty"`
	// delete the offending message as part of enforcement (best-effort)
	DeleteMessage bool      `json:"delete_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (a *Action) PairKey() string {
	return a.GuildID + "/" + a.UserID
}

// Platform gateway action calls. Implementations are thin transport
// adapters; all calls are context-bound and may fail with rate limits,
// permission errors, or because the target already left.
type PlatformClient interface {
	DeleteMessage(ctx context.Context, guildID, channelID, messageID string) error
	WarnMember(ctx context.Context, guildID, channelID, userID, reason string) error
	TimeoutMember(ctx context.Context, guildID, userID string, duration time.Duration, reason string) error
	KickMember(ctx context.Context, guildID, userID, reason string) error
	BanMember(ctx context.Context, guildID, userID, reason string) error
}
