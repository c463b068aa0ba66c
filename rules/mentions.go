package rules

import (
	"fmt"
	"regexp"

	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/ledger"
)

// matches custom guild emoji markup, eg <:partyblob:12345> or animated
// <a:wave:67890>
var customEmojiPattern = regexp.MustCompile(`<a?:\w+:\d+>`)

var _ engine.MessageRuleFunc = MentionFloodMessageRule

// MentionFloodMessageRule flags mass-ping spam: a single message mentioning
// more users than MentionMax, or stuffed with more custom emoji than
// EmojiMax.
func MentionFloodMessageRule(c *engine.MessageContext) error {
	if !c.Policy.MentionEnabled {
		return nil
	}

	if c.Policy.MentionMax > 0 && len(c.Message.Mentions) > c.Policy.MentionMax {
		c.AddViolation(ledger.KindMention, c.Policy.MentionWeight, fmt.Sprintf("%d user mentions in one message", len(c.Message.Mentions)))
		c.Increment("mention-flood", c.Message.GuildID)
		return nil
	}

	if c.Policy.EmojiMax > 0 {
		emoji := customEmojiPattern.FindAllString(c.Message.Text, -1)
		if len(emoji) > c.Policy.EmojiMax {
			c.AddViolation(ledger.KindMention, c.Policy.MentionWeight, fmt.Sprintf("%d custom emoji in one message", len(emoji)))
			c.Increment("emoji-flood", c.Message.GuildID)
		}
	}
	return nil
}
