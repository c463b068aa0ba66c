package rules

import (
	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/ledger"
)

var _ engine.MessageRuleFunc = DuplicateMessageRule

// DuplicateMessageRule flags copy-paste spam: the current message repeating
// an earlier one from the same user, in any channel of the guild. A repeat
// is either an exact normalized-text match, or (for messages of at least
// three tokens) token-set similarity at or above the policy cutoff.
func DuplicateMessageRule(c *engine.MessageContext) error {
	if !c.Policy.DuplicateEnabled {
		return nil
	}
	if c.Norm.NormText == "" {
		return nil
	}

	recent := c.RecentMessages()
	// everything except the current message
	for _, prior := range recent[:len(recent)-1] {
		if prior.NormText == "" {
			continue
		}
		if prior.NormText == c.Norm.NormText {
			c.AddViolation(ledger.KindDuplicate, c.Policy.DuplicateWeight, "exact repeat of recent message")
			c.Increment("duplicate", c.Message.GuildID)
			return nil
		}
		if len(prior.Tokens) >= 3 && len(c.Norm.Tokens) >= 3 &&
			jaccard(prior.Tokens, c.Norm.Tokens) >= c.Policy.DuplicateCutoff {
			c.AddViolation(ledger.KindDuplicate, c.Policy.DuplicateWeight, "near-repeat of recent message")
			c.Increment("duplicate", c.Message.GuildID)
			return nil
		}
	}
	return nil
}

// jaccard computes token-set similarity: |intersection| / |union|.
func jaccard(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, tok := range a {
		setA[tok] = true
	}
	setB := make(map[string]bool, len(b))
	for _, tok := range b {
		setB[tok] = true
	}
	inter := 0
	for tok := range setA {
		if setB[tok] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
