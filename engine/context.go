package engine

import (
	"context"
	"log/slog"

	"github.com/kurumi-project/warden/policystore"
)

// The primary interface exposed to detector rules. All other contexts derive
// from this "base" struct.
type BaseContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// slog logger handle, with event-specific structured fields
	// pre-populated. Pointer, but expected to never be nil.
	Logger *slog.Logger
	// Policy in force for the event's guild.
	Policy policystore.Policy

	engine  *Engine
	effects *Effects
}

// Represents a single message-created event being scored.
type MessageContext struct {
	BaseContext

	Message MessageEvent
	// pre-normalized form of Message, already appended to the recent window
	Norm   RecentMessage
	window *RecentWindow
}

// Represents a member-update event being scored.
type MemberContext struct {
	BaseContext

	Member MemberEvent
}

// checks if `val` is an element of the named wordlist set
func (c *BaseContext) InSet(name, val string) bool {
	out, err := c.engine.Sets.InSet(c.Ctx, name, val)
	if err != nil {
		c.Logger.Error("failed wordlist set lookup", "set", name, "err", err)
		return false
	}
	return out
}

// returns the first configured "worst word" contained in the slug, or empty
// string (substring match mode)
func (c *BaseContext) SlugMatch(slug string) string {
	if c.engine.SlugWords == nil {
		return ""
	}
	return c.engine.SlugWords.Match(slug)
}

func (c *BaseContext) AddViolation(kind string, weight float64, note string) {
	c.effects.AddViolation(kind, weight, note)
}

func (c *BaseContext) AddUserFlag(val string) {
	c.effects.AddUserFlag(val)
}

func (c *BaseContext) Increment(name, val string) {
	c.effects.Increment(name, val)
}

// RecentMessages returns the user's buffered recent messages in this guild,
// oldest first, including the message currently being scored.
func (c *MessageContext) RecentMessages() []RecentMessage {
	return c.window.All()
}

func (c *MessageContext) RequestDeleteMessage() {
	c.effects.RequestDeleteMessage()
}

// CheckThreatURLs resolves the given URLs against the threat-intel client,
// returning the subset which are confirmed threats. Degrades to "no
// threats" when no client is configured.
func (c *MessageContext) CheckThreatURLs(urls []string) map[string]bool {
	if c.engine.Scam == nil {
		return nil
	}
	return c.engine.Scam.CheckURLs(c.Ctx, urls)
}
