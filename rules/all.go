package rules

import (
	"github.com/kurumi-project/warden/engine"
)

func DefaultRules() engine.RuleSet {
	rules := engine.RuleSet{
		MessageRules: []engine.MessageRuleFunc{
			ProfanityMessageRule,
			FloodMessageRule,
			DuplicateMessageRule,
			MentionFloodMessageRule,
			LinkScamMessageRule,
		},
		MemberRules: []engine.MemberRuleFunc{
			BadWordIdentityRule,
		},
	}
	return rules
}
