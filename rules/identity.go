package rules

import (
	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/keyword"
	"github.com/kurumi-project/warden/ledger"
)

var _ engine.MemberRuleFunc = BadWordIdentityRule

// BadWordIdentityRule screens usernames and nicknames against the wordlist
// on join and on every name change. Identity findings are weighted low on
// their own; they mostly prime the score for users who go on to misbehave.
func BadWordIdentityRule(c *engine.MemberContext) error {
	if !c.Policy.ProfanityEnabled {
		return nil
	}

	for _, name := range []string{c.Member.Username, c.Member.Nickname} {
		if name == "" {
			continue
		}
		for _, tok := range keyword.TokenizeIdentifier(name) {
			tok = keyword.NormalizeToken(tok)
			if tok != "" && c.InSet("bad-words", tok) {
				c.AddViolation(ledger.KindIdentity, c.Policy.IdentityWeight, "wordlist match in username or nickname")
				c.AddUserFlag("bad-identity")
				return nil
			}
		}
		if word := c.SlugMatch(keyword.Slugify(name)); word != "" {
			c.AddViolation(ledger.KindIdentity, c.Policy.IdentityWeight, "wordlist match in username or nickname")
			c.AddUserFlag("bad-identity")
			return nil
		}
	}
	return nil
}
