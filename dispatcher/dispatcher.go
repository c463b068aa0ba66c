package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kurumi-project/warden/ledger"
)

// Dispatcher applies enforcement actions against the platform, decoupled
// from the scoring pipeline by an internal work queue so platform latency
// never starves detection. Per-action it does bounded retries with
// exponential backoff, emits an audit record regardless of outcome, and
// advances the ledger's last-action state only on confirmed success.
type Dispatcher struct {
	Logger   *slog.Logger
	Client   PlatformClient
	Ledger   ledger.Ledger
	Audit    AuditLog
	Notifier Notifier

	// platform-wide rate limit across all action calls
	Limiter *rate.Limiter

	MaxAttempts    int
	RetryBackoff   time.Duration
	AttemptTimeout time.Duration

	queue chan Action

	inflightLk sync.Mutex
	inflight   map[string]bool
}

type Config struct {
	Logger      *slog.Logger
	Client      PlatformClient
	Ledger      ledger.Ledger
	Audit       AuditLog
	Notifier    Notifier
	QueueSize   int
	RateLimit   rate.Limit
	MaxAttempts int
}

func NewDispatcher(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("system", "dispatcher")
	}
	queueSize := cfg.QueueSize
	if queueSize == 0 {
		queueSize = 1000
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	limit := cfg.RateLimit
	if limit == 0 {
		limit = rate.Limit(10)
	}
	return &Dispatcher{
		Logger:         logger,
		Client:         cfg.Client,
		Ledger:         cfg.Ledger,
		Audit:          cfg.Audit,
		Notifier:       cfg.Notifier,
		Limiter:        rate.NewLimiter(limit, 1),
		MaxAttempts:    maxAttempts,
		RetryBackoff:   time.Second,
		AttemptTimeout: 10 * time.Second,
		queue:          make(chan Action, queueSize),
		inflight:       make(map[string]bool),
	}
}

// Run processes the action queue with the given number of workers until ctx
// is cancelled.
func (d *Dispatcher) Run(ctx context.Context, workers int) {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case a := <-d.queue:
					d.process(ctx, a)
				}
			}
		}()
	}
	wg.Wait()
}

// Enqueue hands an action to the dispatch queue without blocking the
// caller. If an action for the same (guild, user) pair is already in flight
// the new one is dropped: two concurrent escalations must never race from
// the same ledger snapshot, and the next violation will re-evaluate anyway.
func (d *Dispatcher) Enqueue(a Action) error {
	key := a.PairKey()

	d.inflightLk.Lock()
	if d.inflight[key] {
		d.inflightLk.Unlock()
		actionsDropped.WithLabelValues("inflight").Inc()
		d.Logger.Debug("action already in flight, dropping", "guild", a.GuildID, "user", a.UserID, "kind", a.Kind)
		return nil
	}
	d.inflight[key] = true
	d.inflightLk.Unlock()

	select {
	case d.queue <- a:
		actionsEnqueued.WithLabelValues(string(a.Kind)).Inc()
		return nil
	default:
		d.clearInflight(key)
		actionsDropped.WithLabelValues("queue-full").Inc()
		return fmt.Errorf("dispatch queue full, dropping %s for %s", a.Kind, key)
	}
}

func (d *Dispatcher) clearInflight(key string) {
	d.inflightLk.Lock()
	delete(d.inflight, key)
	d.inflightLk.Unlock()
}

func (d *Dispatcher) process(ctx context.Context, a Action) {
	defer d.clearInflight(a.PairKey())

	logger := d.Logger.With("guild", a.GuildID, "user", a.UserID, "kind", a.Kind)

	// message deletion is best-effort and not retried; the offending content
	// is gone or it isn't, and the member-level action matters more
	if a.DeleteMessage && a.MessageID != "" {
		if err := d.applyCall(ctx, func(cctx context.Context) error {
			return d.Client.DeleteMessage(cctx, a.GuildID, a.ChannelID, a.MessageID)
		}); err != nil {
			logger.Warn("deleting message failed", "message", a.MessageID, "err", err)
		}
	}

	var lastErr error
	attempts := 0
	for attempts < d.MaxAttempts {
		attempts++
		lastErr = d.applyCall(ctx, func(cctx context.Context) error {
			return d.applyAction(cctx, a)
		})
		if lastErr == nil {
			break
		}
		logger.Warn("enforcement attempt failed", "attempt", attempts, "err", lastErr)
		if attempts < d.MaxAttempts {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempts = d.MaxAttempts
			case <-time.After(d.RetryBackoff << (attempts - 1)):
			}
		}
	}

	rec := AuditRecord{
		Action:   a,
		Applied:  lastErr == nil,
		Attempts: attempts,
		At:       time.Now(),
	}
	if lastErr != nil {
		rec.Error = lastErr.Error()
	}
	if err := d.Audit.Append(ctx, rec); err != nil {
		logger.Error("appending audit record failed", "err", err)
	}

	if lastErr != nil {
		// leave the ledger un-advanced: the next violation will re-attempt
		// escalation from the same state
		actionsFailed.WithLabelValues(string(a.Kind)).Inc()
		logger.Error("enforcement action failed after retries", "attempts", attempts, "err", lastErr)
		d.notify(ctx, rec)
		return
	}

	if err := d.Ledger.MarkAction(ctx, a.GuildID, a.UserID, string(a.Kind), rec.At); err != nil {
		logger.Error("marking ledger action failed", "err", err)
	}
	actionsApplied.WithLabelValues(string(a.Kind)).Inc()
	logger.Info("enforcement action applied", "reason", a.Reason, "score", a.Score, "attempts", attempts)
	d.notify(ctx, rec)
}

func (d *Dispatcher) applyCall(ctx context.Context, call func(context.Context) error) error {
	if err := d.Limiter.Wait(ctx); err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, d.AttemptTimeout)
	defer cancel()
	return call(cctx)
}

func (d *Dispatcher) applyAction(ctx context.Context, a Action) error {
	switch a.Kind {
	case ActionWarn:
		return d.Client.WarnMember(ctx, a.GuildID, a.ChannelID, a.UserID, a.Reason)
	case ActionTimeout:
		return d.Client.TimeoutMember(ctx, a.GuildID, a.UserID, a.TimeoutFor, a.Reason)
	case ActionKick:
		return d.Client.KickMember(ctx, a.GuildID, a.UserID, a.Reason)
	case ActionBan:
		return d.Client.BanMember(ctx, a.GuildID, a.UserID, a.Reason)
	default:
		return fmt.Errorf("unexpected action kind: %s", a.Kind)
	}
}

func (d *Dispatcher) notify(ctx context.Context, rec AuditRecord) {
	if d.Notifier == nil {
		return
	}
	if err := d.Notifier.SendActionResult(ctx, rec); err != nil {
		d.Logger.Error("sending notification failed", "err", err)
	}
}
