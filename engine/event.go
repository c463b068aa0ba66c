package engine

import (
	"time"
)

// A message-created event from the platform gateway.
type MessageEvent struct {
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	MessageID string    `json:"message_id"`
	Text      string    `json:"text"`
	// user IDs mentioned in the message, as resolved by the gateway
	Mentions []string `json:"mentions,omitempty"`
	// author role identifiers, for exemption checks
	Roles     []string  `json:"roles,omitempty"`
	IsBot     bool      `json:"is_bot,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PairKey is the serialization key for ingestion ordering: all events for
// one (guild, user) pair are processed strictly in arrival order.
func (e *MessageEvent) PairKey() string {
	return e.GuildID + "/" + e.UserID
}

// A member-update event (join, username or nickname change).
type MemberEvent struct {
	GuildID   string    `json:"guild_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *MemberEvent) PairKey() string {
	return e.GuildID + "/" + e.UserID
}
