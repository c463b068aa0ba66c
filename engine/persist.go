package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kurumi-project/warden/countstore"
	"github.com/kurumi-project/warden/dispatcher"
	"github.com/kurumi-project/warden/ledger"
)

// persistEffects writes out everything the detectors accumulated: counters,
// user flags, ledger violations, and (if a score boundary was crossed) a
// single enforcement action. Violations from one event are recorded in one
// batch, so the escalation decision is made once against the combined
// aggregate rather than per finding.
func (eng *Engine) persistEffects(ctx context.Context, c *BaseContext, guildID, userID, channelID, messageID string) error {
	for _, ref := range c.effects.CounterIncrements {
		if err := eng.Counters.Increment(ctx, ref.Name, ref.Val); err != nil {
			c.Logger.Error("failed to increment counter", "name", ref.Name, "val", ref.Val, "err", err)
		}
	}

	if len(c.effects.UserFlags) > 0 {
		if err := eng.Flags.Add(ctx, guildID+"/"+userID, dedupeStrings(c.effects.UserFlags)); err != nil {
			c.Logger.Error("failed to persist user flags", "err", err)
		}
	}

	if len(c.effects.Violations) == 0 {
		return nil
	}

	// snapshot before recording so the escalation decision sees the state
	// the new findings are landing on
	prior, err := eng.Ledger.Snapshot(ctx, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to read ledger state: %w", err)
	}

	now := time.Now()
	records := make([]ledger.Violation, len(c.effects.Violations))
	for i, v := range c.effects.Violations {
		records[i] = ledger.Violation{
			Kind:      v.Kind,
			Weight:    v.Weight,
			MessageID: messageID,
			Note:      v.Note,
			Horizon:   c.Policy.DecayHorizon,
			CreatedAt: now,
		}
		violationsRecordedCount.WithLabelValues(v.Kind).Inc()
	}
	score, err := eng.Ledger.Record(ctx, guildID, userID, records...)
	if err != nil {
		return fmt.Errorf("failed to record violations: %w", err)
	}
	c.Logger.Info("violations recorded", "count", len(records), "score", score, "reason", violationKinds(c.effects.Violations))

	kind, ok := NextAction(StateForAction(prior.LastAction), score, c.Policy)
	if !ok {
		return nil
	}

	// debounce: a burst of boundary-crossing events within the window
	// produces one action, not one per event. Failed actions never mark the
	// ledger, so they fall outside the debounce and get re-attempted.
	if prior.LastAction != "" && c.Policy.ActionDebounce > 0 && now.Sub(prior.LastActionAt) < c.Policy.ActionDebounce {
		actionsDebouncedCount.Inc()
		c.Logger.Info("enforcement debounced", "action", kind, "last_action", prior.LastAction)
		return nil
	}

	if suppressed, err := eng.quotaExceeded(ctx, guildID, kind); err != nil {
		c.Logger.Error("failed to check enforcement quota", "err", err)
	} else if suppressed {
		actionsQuotaSuppressedCount.WithLabelValues(string(kind)).Inc()
		c.Logger.Warn("enforcement suppressed by daily quota", "action", kind, "score", score)
		return nil
	}

	action := dispatcher.Action{
		Kind:          kind,
		GuildID:       guildID,
		UserID:        userID,
		Reason:        violationKinds(c.effects.Violations),
		Score:         score,
		DeleteMessage: c.effects.DeleteMessage,
		CreatedAt:     now,
	}
	switch kind {
	case dispatcher.ActionWarn:
		// warnings are delivered in the offending channel
		action.ChannelID = channelID
		action.MessageID = messageID
	case dispatcher.ActionTimeout:
		action.TimeoutFor = c.Policy.TimeoutDuration
	}
	if c.effects.DeleteMessage {
		action.ChannelID = channelID
		action.MessageID = messageID
	}

	if err := eng.Dispatcher.Enqueue(action); err != nil {
		return fmt.Errorf("failed to enqueue enforcement action: %w", err)
	}
	if kind == dispatcher.ActionKick || kind == dispatcher.ActionBan {
		if err := eng.Counters.Increment(ctx, "quota-"+string(kind), guildID); err != nil {
			c.Logger.Error("failed to increment quota counter", "err", err)
		}
	}
	c.Logger.Info("enforcement enqueued", "action", kind, "score", score)
	return nil
}

// quotaExceeded checks the per-guild daily circuit breaker for destructive
// actions. Warnings and timeouts are unbounded.
func (eng *Engine) quotaExceeded(ctx context.Context, guildID string, kind dispatcher.ActionKind) (bool, error) {
	var limit int
	switch kind {
	case dispatcher.ActionKick:
		limit = QuotaKickDay
	case dispatcher.ActionBan:
		limit = QuotaBanDay
	default:
		return false, nil
	}
	count, err := eng.Counters.GetCount(ctx, "quota-"+string(kind), guildID, countstore.PeriodDay)
	if err != nil {
		return false, err
	}
	return count >= limit, nil
}

func violationKinds(violations []ViolationEffect) string {
	seen := make(map[string]bool, len(violations))
	var kinds []string
	for _, v := range violations {
		if !seen[v.Kind] {
			seen[v.Kind] = true
			kinds = append(kinds, v.Kind)
		}
	}
	sort.Strings(kinds)
	return strings.Join(kinds, ",")
}

func dedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
