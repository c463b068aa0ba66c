package rules

import (
	"fmt"

	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/ledger"
)

var _ engine.MessageRuleFunc = FloodMessageRule

// FloodMessageRule fires when the user has sent more than FloodMaxMessages
// in one channel within the FloodWindow. Each event is judged against its
// own trailing window, so a burst yields one violation per message past the
// threshold rather than one per burst-member; severity grows with the
// overflow.
func FloodMessageRule(c *engine.MessageContext) error {
	if !c.Policy.FloodEnabled || c.Policy.FloodMaxMessages <= 0 {
		return nil
	}

	cutoff := c.Message.Timestamp.Add(-c.Policy.FloodWindow)
	count := 0
	for _, m := range c.RecentMessages() {
		if m.ChannelID == c.Message.ChannelID && !m.At.Before(cutoff) {
			count++
		}
	}
	if count <= c.Policy.FloodMaxMessages {
		return nil
	}

	overflow := count - c.Policy.FloodMaxMessages
	weight := c.Policy.FloodWeight * float64(overflow)
	c.AddViolation(ledger.KindFlood, weight, fmt.Sprintf("%d messages within %s", count, c.Policy.FloodWindow))
	c.Increment("flood", c.Message.GuildID)
	return nil
}
