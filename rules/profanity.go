package rules

import (
	"fmt"

	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/keyword"
	"github.com/kurumi-project/warden/ledger"
)

var _ engine.MessageRuleFunc = ProfanityMessageRule

// ProfanityMessageRule matches message text against the configured "bad-words"
// wordlist, token-by-token plus a slug substring pass to catch spacing and
// leetspeak evasion. Severity scales with the number of distinct matches.
func ProfanityMessageRule(c *engine.MessageContext) error {
	if !c.Policy.ProfanityEnabled {
		return nil
	}

	matches := make(map[string]bool)
	for _, tok := range c.Norm.Tokens {
		tok = keyword.NormalizeToken(tok)
		if tok != "" && c.InSet("bad-words", tok) {
			matches[tok] = true
		}
	}
	if word := c.SlugMatch(keyword.Slugify(c.Message.Text)); word != "" {
		matches[word] = true
	}
	if len(matches) == 0 {
		return nil
	}

	c.AddViolation(ledger.KindProfanity, c.Policy.ProfanityWeight*float64(len(matches)), fmt.Sprintf("%d wordlist matches", len(matches)))
	c.AddUserFlag("profanity")
	c.Increment("profanity", c.Message.GuildID)
	return nil
}
