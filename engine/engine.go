package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kurumi-project/warden/countstore"
	"github.com/kurumi-project/warden/dispatcher"
	"github.com/kurumi-project/warden/flagstore"
	"github.com/kurumi-project/warden/keyword"
	"github.com/kurumi-project/warden/ledger"
	"github.com/kurumi-project/warden/policystore"
	"github.com/kurumi-project/warden/scamcheck"
	"github.com/kurumi-project/warden/setstore"
)

// ActionEnqueuer is the engine's hand-off point to the enforcement
// dispatcher. Enqueue must not block on platform I/O.
type ActionEnqueuer interface {
	Enqueue(a dispatcher.Action) error
}

// The moderation engine: aggregates the configured detector rules, policy
// and violation state, and assorted backing stores. Processes incoming
// events, scores them, and hands enforcement decisions to the dispatcher.
//
// The process methods are expected to be called from a scheduler which
// serializes events per (guild, user) pair; under that contract no two
// events for the same pair are ever in flight at once.
type Engine struct {
	Logger     *slog.Logger
	Policies   policystore.PolicyStore
	Ledger     ledger.Ledger
	Rules      RuleSet
	Sets       setstore.SetStore
	Counters   countstore.CountStore
	Flags      flagstore.FlagStore
	Dispatcher ActionEnqueuer
	// optional link threat-intel client; nil disables link-scam checks
	Scam *scamcheck.Client
	// optional substring wordlist matcher; nil disables substring mode
	SlugWords *keyword.SlugMatcher
	// cap on tracked (guild, user) message windows; 0 means default
	MaxTrackedUsers int

	windows windowTable
}

// ProcessMessageEvent runs a message-created event through all message
// detectors and persists the combined results. Malformed events are counted
// and dropped, never scored; internal failures are isolated so one event
// can not crash the ingestion worker.
func (eng *Engine) ProcessMessageEvent(ctx context.Context, evt MessageEvent) error {
	eventsProcessedCount.WithLabelValues("message", "start").Inc()
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		eventProcessDuration.Observe(duration.Seconds())
	}()

	// similar to an HTTP server, we want to recover any panics from detectors
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "guild", evt.GuildID, "user", evt.UserID)
			eventsProcessedCount.WithLabelValues("message", "error").Inc()
		}
	}()

	if evt.GuildID == "" || evt.UserID == "" || evt.MessageID == "" {
		eventsMalformedCount.Inc()
		eng.Logger.Warn("dropping malformed message event", "guild", evt.GuildID, "user", evt.UserID, "message", evt.MessageID)
		return nil
	}
	if evt.IsBot {
		eventsProcessedCount.WithLabelValues("message", "skip").Inc()
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	policy := eng.Policies.Get(ctx, evt.GuildID)
	if policy.ChannelExempt(evt.ChannelID) || policy.RolesExempt(evt.Roles) {
		eventsExemptCount.Inc()
		eventsProcessedCount.WithLabelValues("message", "exempt").Inc()
		return nil
	}

	window := eng.windows.get(evt.PairKey(), eng.MaxTrackedUsers)
	norm := normalizeMessage(&evt)
	window.Append(norm)

	c := MessageContext{
		BaseContext: BaseContext{
			Ctx:     ctx,
			Logger:  eng.Logger.With("guild", evt.GuildID, "user", evt.UserID, "message", evt.MessageID),
			Policy:  policy,
			engine:  eng,
			effects: &Effects{},
		},
		Message: evt,
		Norm:    norm,
		window:  window,
	}
	eng.Rules.CallMessageRules(&c)

	if err := eng.persistEffects(ctx, &c.BaseContext, evt.GuildID, evt.UserID, evt.ChannelID, evt.MessageID); err != nil {
		eventsProcessedCount.WithLabelValues("message", "error").Inc()
		return fmt.Errorf("failed to persist message event effects: %w", err)
	}
	eventsProcessedCount.WithLabelValues("message", "ok").Inc()
	return nil
}

// ProcessMemberEvent runs a member-update event (join, name change) through
// all member detectors and persists the combined results.
func (eng *Engine) ProcessMemberEvent(ctx context.Context, evt MemberEvent) error {
	eventsProcessedCount.WithLabelValues("member", "start").Inc()
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		eventProcessDuration.Observe(duration.Seconds())
	}()

	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("automod event execution exception", "err", r, "guild", evt.GuildID, "user", evt.UserID)
			eventsProcessedCount.WithLabelValues("member", "error").Inc()
		}
	}()

	if evt.GuildID == "" || evt.UserID == "" {
		eventsMalformedCount.Inc()
		eng.Logger.Warn("dropping malformed member event", "guild", evt.GuildID, "user", evt.UserID)
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	policy := eng.Policies.Get(ctx, evt.GuildID)
	if policy.RolesExempt(evt.Roles) {
		eventsExemptCount.Inc()
		eventsProcessedCount.WithLabelValues("member", "exempt").Inc()
		return nil
	}

	c := MemberContext{
		BaseContext: BaseContext{
			Ctx:     ctx,
			Logger:  eng.Logger.With("guild", evt.GuildID, "user", evt.UserID),
			Policy:  policy,
			engine:  eng,
			effects: &Effects{},
		},
		Member: evt,
	}
	eng.Rules.CallMemberRules(&c)

	if err := eng.persistEffects(ctx, &c.BaseContext, evt.GuildID, evt.UserID, "", ""); err != nil {
		eventsProcessedCount.WithLabelValues("member", "error").Inc()
		return fmt.Errorf("failed to persist member event effects: %w", err)
	}
	eventsProcessedCount.WithLabelValues("member", "ok").Inc()
	return nil
}

// ResetUser clears all engine-side state for a pair: violation history,
// last-action state, and the buffered message window. Administrative
// override for false positives.
func (eng *Engine) ResetUser(ctx context.Context, guildID, userID string) error {
	if err := eng.Ledger.Reset(ctx, guildID, userID); err != nil {
		return err
	}
	eng.windows.drop(guildID + "/" + userID)
	return nil
}
