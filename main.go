package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"shardcore/internal/cachebridge"
	"shardcore/internal/cluster"
	"shardcore/internal/config"
	"shardcore/internal/events"
	"shardcore/internal/metrics"
	"shardcore/internal/redis"
	"shardcore/internal/sessionstore"
)

func main() {
	numCPU := runtime.NumCPU()
	runtime.GOMAXPROCS(numCPU)
	// A shard's hot path is I/O bound (network reads, inflate, JSON
	// decode) rather than allocation-heavy, so a moderate 200% GC target is
	// used instead of the teacher's aggressive 400%, which was tuned for a
	// very different allocation profile (per-message discordgo structs).
	debug.SetGCPercent(200)

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	mreg := metrics.NewRegistry(reg)

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.New(log, redis.Config(cfg.Redis))
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	cache, err := cachebridge.New(log, rdb)
	if err != nil {
		log.Fatal("failed to build cache", zap.Error(err))
	}

	var store *sessionstore.Store
	if cfg.Postgres.Host != "" {
		store, err = sessionstore.Open(log, cfg.Postgres)
		if err != nil {
			log.Fatal("failed to open session store", zap.Error(err))
		}
		defer store.Close()
	}

	handlers := &events.Handlers{
		OnReady: func(rec *events.Record) {
			log.Info("shard ready", zap.Int("shard", rec.ShardID))
		},
		OnMessage: func(rec *events.Record) {
			log.Debug("message dispatch", zap.Int("shard", rec.ShardID))
		},
	}

	cl := cluster.New(log, mreg, cfg, cache, store, handlers)

	if cfg.Metrics.ListenAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cl.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("cluster exited", zap.Error(err))
	}
	log.Info("shutdown complete")
}
