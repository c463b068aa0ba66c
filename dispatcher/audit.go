package dispatcher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Outcome of one enforcement attempt cycle. Appended regardless of success.
type AuditRecord struct {
	Action   Action    `json:"action"`
	Applied  bool      `json:"applied"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

type AuditLog interface {
	Append(ctx context.Context, rec AuditRecord) error
	// List returns the most recent records for a guild, newest first.
	List(ctx context.Context, guildID string, limit int) ([]AuditRecord, error)
}

type MemAuditLog struct {
	lk   sync.Mutex
	data map[string][]AuditRecord
}

var _ AuditLog = (*MemAuditLog)(nil)

func NewMemAuditLog() *MemAuditLog {
	return &MemAuditLog{
		data: make(map[string][]AuditRecord),
	}
}

func (l *MemAuditLog) Append(ctx context.Context, rec AuditRecord) error {
	l.lk.Lock()
	defer l.lk.Unlock()
	l.data[rec.Action.GuildID] = append(l.data[rec.Action.GuildID], rec)
	return nil
}

func (l *MemAuditLog) List(ctx context.Context, guildID string, limit int) ([]AuditRecord, error) {
	l.lk.Lock()
	defer l.lk.Unlock()
	recs := l.data[guildID]
	out := make([]AuditRecord, 0, limit)
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

var redisAuditPrefix string = "audit/"

// keep a bounded tail of audit history per guild in redis
var redisAuditMaxLen int64 = 10_000

type RedisAuditLog struct {
	Client *redis.Client
}

var _ AuditLog = (*RedisAuditLog)(nil)

func NewRedisAuditLog(redisURL string) (*RedisAuditLog, error) {
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
	return &RedisAuditLog{Client: rdb}, nil
}

func (l *RedisAuditLog) Append(ctx context.Context, rec AuditRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := redisAuditPrefix + rec.Action.GuildID
	multi := l.Client.Pipeline()
	multi.LPush(ctx, key, raw)
	multi.LTrim(ctx, key, 0, redisAuditMaxLen-1)
	_, err = multi.Exec(ctx)
	return err
}

func (l *RedisAuditLog) List(ctx context.Context, guildID string, limit int) ([]AuditRecord, error) {
	vals, err := l.Client.LRange(ctx, redisAuditPrefix+guildID, 0, int64(limit)-1).Result()
	if err == redis.Nil {
		return []AuditRecord{}, nil
	} else if err != nil {
		return nil, err
	}
	out := make([]AuditRecord, 0, len(vals))
	for _, v := range vals {
		var rec AuditRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
