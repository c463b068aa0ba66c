// Package consumer subscribes to the platform gateway's websocket event
// stream and feeds message and member events into the moderation engine,
// serialized per (guild, user) pair.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/scheduler"
)

var gatewayCursorKey = "warden/seq"

// Envelope around each gateway frame. Seq is the gateway's monotonic event
// sequence number, used for resume-after-restart.
type GatewayEvent struct {
	Type string          `json:"type"`
	Seq  int64           `json:"seq"`
	Data json.RawMessage `json:"data"`
}

const (
	EventMessageCreate = "message_create"
	EventMemberUpdate  = "member_update"
)

type GatewayConsumer struct {
	Parallelism int
	Logger      *slog.Logger
	RedisClient *redis.Client
	Engine      *engine.Engine
	Host        string

	// lastSeq is the most recent event sequence number we've received and
	// begun to handle. Periodically persisted to redis, if redis is
	// present. Best-effort (handling is concurrent, so numbers may not be
	// monotonic); use atomics when updating or reading.
	lastSeq int64

	sched *scheduler.Scheduler[*GatewayEvent]
}

// Run subscribes to the gateway and pumps events through the per-pair
// scheduler until ctx is cancelled. Connection drops are retried with
// backoff, resuming from the last handled sequence number.
func (gc *GatewayConsumer) Run(ctx context.Context) error {
	if gc.Engine == nil {
		return fmt.Errorf("nil engine")
	}

	parallelism := gc.Parallelism
	if parallelism <= 0 {
		parallelism = 8
	}
	gc.sched = scheduler.NewScheduler[*GatewayEvent](parallelism, gc.Host, gc.handleEvent)
	defer gc.sched.Shutdown()

	backoff := time.Second
	for {
		err := gc.runConnection(ctx)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}
		gatewayReconnects.Inc()
		gc.Logger.Warn("gateway connection lost, reconnecting", "err", err, "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (gc *GatewayConsumer) runConnection(ctx context.Context) error {
	cur, err := gc.ReadLastCursor(ctx)
	if err != nil {
		return err
	}

	dialer := websocket.DefaultDialer
	u, err := url.Parse(gc.Host)
	if err != nil {
		return fmt.Errorf("invalid gateway host URI: %w", err)
	}
	u.Path = "/events/subscribe"
	if cur != 0 {
		u.RawQuery = fmt.Sprintf("cursor=%d", cur)
	}
	gc.Logger.Info("subscribing to gateway event stream", "upstream", gc.Host, "cursor", cur)
	con, _, err := dialer.DialContext(ctx, u.String(), http.Header{
		"User-Agent": []string{fmt.Sprintf("warden/%s", versioninfo.Short())},
	})
	if err != nil {
		return fmt.Errorf("subscribing to gateway failed (dialing): %w", err)
	}
	defer con.Close()

	go func() {
		<-ctx.Done()
		con.Close()
	}()

	for {
		var evt GatewayEvent
		if err := con.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading gateway frame: %w", err)
		}
		atomic.StoreInt64(&gc.lastSeq, evt.Seq)
		gatewayEventsReceived.WithLabelValues(evt.Type).Inc()

		key, ok := pairKeyForEvent(&evt)
		if !ok {
			// unknown event type or undecodable frame: skip, never fatal
			gatewayEventsSkipped.Inc()
			continue
		}
		if err := gc.sched.AddWork(ctx, key, &evt); err != nil {
			return err
		}
	}
}

// pairKeyForEvent peeks at the payload to extract the (guild, user)
// serialization key without fully decoding the event.
func pairKeyForEvent(evt *GatewayEvent) (string, bool) {
	switch evt.Type {
	case EventMessageCreate, EventMemberUpdate:
	default:
		return "", false
	}
	var pair struct {
		GuildID string `json:"guild_id"`
		UserID  string `json:"user_id"`
	}
	if err := json.Unmarshal(evt.Data, &pair); err != nil {
		return "", false
	}
	if pair.GuildID == "" || pair.UserID == "" {
		return "", false
	}
	return pair.GuildID + "/" + pair.UserID, true
}

func (gc *GatewayConsumer) handleEvent(ctx context.Context, evt *GatewayEvent) error {
	switch evt.Type {
	case EventMessageCreate:
		var msg engine.MessageEvent
		if err := json.Unmarshal(evt.Data, &msg); err != nil {
			gc.Logger.Error("undecodable message event", "seq", evt.Seq, "err", err)
			return nil
		}
		if err := gc.Engine.ProcessMessageEvent(ctx, msg); err != nil {
			gc.Logger.Error("engine failed to process message", "seq", evt.Seq, "err", err)
		}
	case EventMemberUpdate:
		var mem engine.MemberEvent
		if err := json.Unmarshal(evt.Data, &mem); err != nil {
			gc.Logger.Error("undecodable member event", "seq", evt.Seq, "err", err)
			return nil
		}
		if err := gc.Engine.ProcessMemberEvent(ctx, mem); err != nil {
			gc.Logger.Error("engine failed to process member update", "seq", evt.Seq, "err", err)
		}
	}
	return nil
}

func (gc *GatewayConsumer) ReadLastCursor(ctx context.Context) (int64, error) {
	// if redis isn't configured, just skip
	if gc.RedisClient == nil {
		gc.Logger.Info("redis not configured, skipping cursor read")
		return 0, nil
	}

	val, err := gc.RedisClient.Get(ctx, gatewayCursorKey).Int64()
	if err == redis.Nil {
		gc.Logger.Info("no pre-existing cursor in redis")
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	gc.Logger.Info("found prior subscription cursor in redis", "seq", val)
	return val, nil
}

func (gc *GatewayConsumer) PersistCursor(ctx context.Context) error {
	// if redis isn't configured, just skip
	if gc.RedisClient == nil {
		return nil
	}
	lastSeq := atomic.LoadInt64(&gc.lastSeq)
	if lastSeq <= 0 {
		return nil
	}
	return gc.RedisClient.Set(ctx, gatewayCursorKey, lastSeq, 14*24*time.Hour).Err()
}

// RunPersistCursor runs in a loop, persisting cursor state every 5 seconds.
func (gc *GatewayConsumer) RunPersistCursor(ctx context.Context) error {
	// if redis isn't configured, just skip
	if gc.RedisClient == nil {
		return nil
	}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// final flush on shutdown
			if err := gc.PersistCursor(context.Background()); err != nil {
				gc.Logger.Error("failed to persist gateway cursor", "err", err)
			}
			return nil
		case <-ticker.C:
			if err := gc.PersistCursor(ctx); err != nil {
				gc.Logger.Error("failed to persist gateway cursor", "err", err)
			}
		}
	}
}
