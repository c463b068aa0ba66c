package policystore

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

var redisPolicyPrefix string = "policy/"

// Redis-backed policy store with a local TinyLFU read cache, so the hot
// ingestion read path usually resolves in-process. On a Redis outage, Get
// degrades to the default policy and logs an operator-visible warning;
// writes fail loudly.
type RedisPolicyStore struct {
	Client *redis.Client
	Data   *cache.Cache
	Logger *slog.Logger
}

var _ PolicyStore = (*RedisPolicyStore)(nil)

// localTTL bounds staleness of the in-process cache for policies written by
// other processes; same-process writes update the local cache immediately.
func NewRedisPolicyStore(redisURL string, localTTL time.Duration) (*RedisPolicyStore, error) {
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
	data := cache.New(&cache.Options{
		Redis:      rdb,
		LocalCache: cache.NewTinyLFU(10_000, localTTL),
	})
	return &RedisPolicyStore{
		Client: rdb,
		Data:   data,
		Logger: slog.Default().With("system", "policystore"),
	}, nil
}

func (s *RedisPolicyStore) Get(ctx context.Context, guildID string) Policy {
	var raw string
	err := s.Data.Get(ctx, redisPolicyPrefix+guildID, &raw)
	if err == cache.ErrCacheMiss {
		return DefaultPolicy(guildID)
	}
	if err != nil {
		policyStoreDegraded.Inc()
		s.Logger.Warn("policy read failed, using default policy", "guild", guildID, "err", err)
		return DefaultPolicy(guildID)
	}
	var p Policy
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		policyStoreDegraded.Inc()
		s.Logger.Warn("corrupt stored policy, using default policy", "guild", guildID, "err", err)
		return DefaultPolicy(guildID)
	}
	return p
}

func (s *RedisPolicyStore) Set(ctx context.Context, guildID string, patch PolicyPatch) (Policy, error) {
	p := s.Get(ctx, guildID)
	p.apply(patch)
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	if err := s.put(ctx, guildID, p); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (s *RedisPolicyStore) Reset(ctx context.Context, guildID string) error {
	return s.put(ctx, guildID, DefaultPolicy(guildID))
}

func (s *RedisPolicyStore) put(ctx context.Context, guildID string, p Policy) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	// policies are durable configuration; never expire in redis
	return s.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisPolicyPrefix + guildID,
		Value: string(raw),
		TTL:   -1,
	})
}
