package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kurumi-project/warden/adminapi"
	"github.com/kurumi-project/warden/cachestore"
	"github.com/kurumi-project/warden/consumer"
	"github.com/kurumi-project/warden/countstore"
	"github.com/kurumi-project/warden/dispatcher"
	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/flagstore"
	"github.com/kurumi-project/warden/keyword"
	"github.com/kurumi-project/warden/ledger"
	"github.com/kurumi-project/warden/platform"
	"github.com/kurumi-project/warden/policystore"
	"github.com/kurumi-project/warden/rules"
	"github.com/kurumi-project/warden/scamcheck"
	"github.com/kurumi-project/warden/setstore"
)

type Server struct {
	logger     *slog.Logger
	engine     *engine.Engine
	dispatcher *dispatcher.Dispatcher
	consumer   *consumer.GatewayConsumer
	admin      *adminapi.Server
	rdb        *redis.Client
}

type Config struct {
	GatewayHost       string
	PlatformHost      string
	BotToken          string
	RedisURL          string
	SetsFileJSON      string
	Bind              string
	AdminToken        string
	SlackWebhookURL   string
	ScamcheckHost     string
	ScamcheckAPIKey   string
	IngestParallelism int
	ActionRateLimit   int
	MaxTrackedUsers   int
	Logger            *slog.Logger
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	sets := setstore.NewMemSetStore()
	var slugWords []string
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("initializing in-process setstore: %v", err)
		}
		logger.Info("loaded set config from JSON", "path", config.SetsFileJSON)
		slugWords = sets.Members("bad-words")
	}

	var policies policystore.PolicyStore
	var ledgerStore ledger.Ledger
	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var flags flagstore.FlagStore
	var audit dispatcher.AuditLog
	var rdb *redis.Client
	if config.RedisURL != "" {
		// generic client, for cursor state
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}

		pol, err := policystore.NewRedisPolicyStore(config.RedisURL, 30*time.Second)
		if err != nil {
			return nil, fmt.Errorf("initializing redis policystore: %v", err)
		}
		policies = pol

		led, err := ledger.NewRedisLedger(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis ledger: %v", err)
		}
		ledgerStore = led

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, 30*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		cache = csh

		flg, err := flagstore.NewRedisFlagStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis flagstore: %v", err)
		}
		flags = flg

		logs, err := dispatcher.NewRedisAuditLog(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis audit log: %v", err)
		}
		audit = logs
	} else {
		policies = policystore.NewMemPolicyStore()
		ledgerStore = ledger.NewMemLedger()
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, 30*time.Minute)
		flags = flagstore.NewMemFlagStore()
		audit = dispatcher.NewMemAuditLog()
	}

	var notifier dispatcher.Notifier
	if config.SlackWebhookURL != "" {
		logger.Info("configuring slack notifier for enforcement outcomes")
		notifier = &dispatcher.SlackNotifier{SlackWebhookURL: config.SlackWebhookURL}
	}

	disp := dispatcher.NewDispatcher(dispatcher.Config{
		Logger:    logger.With("system", "dispatcher"),
		Client:    platform.NewRESTClient(config.PlatformHost, config.BotToken),
		Ledger:    ledgerStore,
		Audit:     audit,
		Notifier:  notifier,
		RateLimit: rate.Limit(config.ActionRateLimit),
	})

	var scam *scamcheck.Client
	if config.ScamcheckAPIKey != "" {
		logger.Info("configuring URL threat-intel client")
		scam = scamcheck.NewClient(config.ScamcheckHost, config.ScamcheckAPIKey, cache)
	}

	eng := &engine.Engine{
		Logger:          logger,
		Policies:        policies,
		Ledger:          ledgerStore,
		Rules:           rules.DefaultRules(),
		Sets:            sets,
		Counters:        counters,
		Flags:           flags,
		Dispatcher:      disp,
		Scam:            scam,
		SlugWords:       keyword.NewSlugMatcher(slugWords),
		MaxTrackedUsers: config.MaxTrackedUsers,
	}

	gc := &consumer.GatewayConsumer{
		Parallelism: config.IngestParallelism,
		Logger:      logger.With("system", "consumer"),
		RedisClient: rdb,
		Engine:      eng,
		Host:        config.GatewayHost,
	}

	admin := adminapi.NewServer(eng, audit, adminapi.Config{
		Bind:       config.Bind,
		AdminToken: config.AdminToken,
		Logger:     logger.With("system", "adminapi"),
	})

	return &Server{
		logger:     logger,
		engine:     eng,
		dispatcher: disp,
		consumer:   gc,
		admin:      admin,
		rdb:        rdb,
	}, nil
}

// Run starts every long-lived component and blocks until the first one
// fails or an OS exit signal arrives.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		s.logger.Info("received OS exit signal", "signal", sig)
		cancel()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := s.admin.Shutdown(sctx); err != nil {
			s.logger.Error("admin API shutdown error", "err", err)
		}
	}()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.dispatcher.Run(ctx, 4)
		return nil
	})
	eg.Go(func() error { return s.consumer.Run(ctx) })
	eg.Go(func() error { return s.consumer.RunPersistCursor(ctx) })
	eg.Go(func() error { return s.admin.RunAPI() })

	return eg.Wait()
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}
