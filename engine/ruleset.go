package engine

import "log/slog"

type MessageRuleFunc = func(c *MessageContext) error
type MemberRuleFunc = func(c *MemberContext) error

// Holds configuration of which detector rules should be run, and helps
// dispatch events to those rules.
type RuleSet struct {
	MessageRules []MessageRuleFunc
	MemberRules  []MemberRuleFunc
}

// Executes all message detectors. A failing or panicking detector is
// isolated: it contributes no violation, and the remaining detectors still
// run. Results are merged in the shared effects, not by detectors
// themselves.
func (r *RuleSet) CallMessageRules(c *MessageContext) {
	for _, f := range r.MessageRules {
		callIsolated(c.Logger, func() error { return f(c) })
	}
}

// Executes all member-update detectors, with the same isolation.
func (r *RuleSet) CallMemberRules(c *MemberContext) {
	for _, f := range r.MemberRules {
		callIsolated(c.Logger, func() error { return f(c) })
	}
}

func callIsolated(logger *slog.Logger, f func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			detectorFailureCount.Inc()
			logger.Error("detector panic recovered", "panic", rec)
		}
	}()
	if err := f(); err != nil {
		// treated as "no violation from this detector"
		detectorFailureCount.Inc()
		logger.Error("detector failed", "err", err)
	}
}
