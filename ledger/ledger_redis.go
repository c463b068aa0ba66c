package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisRecordsPrefix = "ledger-records/"
	redisActionPrefix  = "ledger-action/"
)

type redisActionState struct {
	Kind string    `json:"kind"`
	At   time.Time `json:"at"`
}

// Redis-backed ledger. Violation records and last-action state live under
// separate keys: records are only written from the per-key serialized
// scoring path, while MarkAction is called asynchronously from the
// dispatcher, so the two must not share a read-modify-write cycle.
type RedisLedger struct {
	Client *redis.Client
}

var _ Ledger = (*RedisLedger)(nil)

func NewRedisLedger(redisURL string) (*RedisLedger, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisLedger{Client: rdb}, nil
}

func (l *RedisLedger) loadRecords(ctx context.Context, key string) ([]Violation, error) {
	raw, err := l.Client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var records []Violation
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (l *RedisLedger) saveRecords(ctx context.Context, key string, records []Violation) error {
	if len(records) == 0 {
		return l.Client.Del(ctx, key).Err()
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return l.Client.Set(ctx, key, raw, 0).Err()
}

func (l *RedisLedger) Record(ctx context.Context, guildID, userID string, violations ...Violation) (float64, error) {
	key := redisRecordsPrefix + pairKey(guildID, userID)
	records, err := l.loadRecords(ctx, key)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	for _, v := range violations {
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		records = append(records, v)
	}
	sum, kept := aggregate(records, now)
	if err := l.saveRecords(ctx, key, kept); err != nil {
		return 0, err
	}
	return sum, nil
}

func (l *RedisLedger) Snapshot(ctx context.Context, guildID, userID string) (Snapshot, error) {
	records, err := l.loadRecords(ctx, redisRecordsPrefix+pairKey(guildID, userID))
	if err != nil {
		return Snapshot{}, err
	}
	sum, kept := aggregate(records, time.Now())

	snap := Snapshot{
		GuildID: guildID,
		UserID:  userID,
		Score:   sum,
		Records: len(kept),
	}

	raw, err := l.Client.Get(ctx, redisActionPrefix+pairKey(guildID, userID)).Bytes()
	if err == redis.Nil {
		return snap, nil
	} else if err != nil {
		return Snapshot{}, err
	}
	var state redisActionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return Snapshot{}, err
	}
	snap.LastAction = state.Kind
	snap.LastActionAt = state.At
	return snap, nil
}

func (l *RedisLedger) MarkAction(ctx context.Context, guildID, userID, kind string, at time.Time) error {
	raw, err := json.Marshal(redisActionState{Kind: kind, At: at})
	if err != nil {
		return err
	}
	return l.Client.Set(ctx, redisActionPrefix+pairKey(guildID, userID), raw, 0).Err()
}

func (l *RedisLedger) Reset(ctx context.Context, guildID, userID string) error {
	return l.Client.Del(ctx,
		redisRecordsPrefix+pairKey(guildID, userID),
		redisActionPrefix+pairKey(guildID, userID),
	).Err()
}
