package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/whisper/chatfilter/internal/ban"
	"github.com/whisper/chatfilter/internal/config"
	"github.com/whisper/chatfilter/internal/logger"
	"github.com/whisper/chatfilter/internal/messaging"
	"github.com/whisper/chatfilter/internal/metrics"
	"github.com/whisper/chatfilter/internal/moderation"
	"github.com/whisper/chatfilter/internal/modlog"
	"github.com/whisper/chatfilter/internal/termstore"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logFile, err := logger.Setup(cfg.Logger, "chatfilter")
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer logFile.Close()

	log.Println("Starting chat filter moderation service...")

	// Redis setup (account suspensions).
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		cancel()
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	cancel()
	banStore := ban.NewStore(rdb)

	// NATS setup.
	natsConfig := messaging.DefaultNATSConfig()
	natsConfig.URL = cfg.NATS.URL
	natsConfig.Name = cfg.NATS.Name

	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	// Term source: PostgreSQL when configured, otherwise the config list.
	var source termstore.Source = termstore.StaticSource{List: cfg.Moderation.Terms}
	var termStore *termstore.Store
	if cfg.Postgres.DSN != "" {
		if cfg.Postgres.Migrate {
			if err := termstore.Migrate(cfg.Postgres.DSN); err != nil {
				log.Fatalf("failed to migrate term store: %v", err)
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		termStore, err = termstore.Open(ctx, cfg.Postgres.DSN)
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to PostgreSQL: %v", err)
		}
		source = termStore
	}

	// Moderation engine.
	policy, err := cfg.Policy()
	if err != nil {
		log.Fatalf("invalid policy: %v", err)
	}
	suspensions := moderation.NewMemSuspensionStore()
	engine := moderation.NewEngine(moderation.NewCatalog(), suspensions, policy, cfg.EngineConfig())

	c := &checker{
		engine:      engine,
		enforcer:    moderation.NewEnforcer(banStore, natsClient, cfg.Moderation.Issuer),
		source:      source,
		suspensions: suspensions,
		publish:     natsClient.PublishModerationResult,
		now:         time.Now,
	}

	var violations *modlog.Writer
	if cfg.Moderation.LogEnabled {
		violations, err = modlog.NewWriter(cfg.ViolationLog)
		if err != nil {
			log.Fatalf("failed to open violation log: %v", err)
		}
		c.violations = violations
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := c.reload(ctx); err != nil {
		log.Printf("initial catalog load failed: %v", err)
	}
	cancel()

	if err := natsClient.SubscribeModerationCheck(c.handleCheck); err != nil {
		log.Fatalf("failed to subscribe to moderation checks: %v", err)
	}
	if err := natsClient.SubscribeModerationReload(c.handleReload); err != nil {
		log.Fatalf("failed to subscribe to reload triggers: %v", err)
	}

	adm := &admin{bans: banStore, reload: c.reload}
	if termStore != nil {
		adm.terms = termStore
	}
	if err := natsClient.SubscribeModerationAdmin(adm.handle); err != nil {
		log.Fatalf("failed to subscribe to admin commands: %v", err)
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	if cfg.Moderation.SweepInterval > 0 {
		go sweepLoop(sweepCtx, suspensions, cfg.Moderation.SweepInterval)
	}

	// Metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server error: %v", err)
		}
	}()

	log.Printf("Chat filter moderation service running")
	log.Printf("  enabled:      %v", cfg.Moderation.Enabled)
	log.Printf("  log_enabled:  %v", cfg.Moderation.LogEnabled)
	log.Printf("  terms:        %d", engine.Catalog().Len())
	log.Printf("  tiers:        %d", policy.Tiers())
	log.Printf("  redis_addr:   %s", cfg.Redis.Addr)
	log.Printf("  nats_url:     %s", natsConfig.URL)
	log.Printf("  metrics_addr: %s", cfg.Metrics.ListenAddr)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	stopSweep()
	// Stop taking new checks before draining the remaining subscriptions.
	if err := natsClient.Unsubscribe(messaging.SubjectModeration); err != nil {
		log.Printf("unsubscribe checks: %v", err)
	}
	natsClient.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown: %v", err)
	}
	cancel()

	if violations != nil {
		violations.Close()
	}
	if termStore != nil {
		termStore.Close()
	}
	rdb.Close()
}

// sweepLoop periodically evicts expired mute records.
func sweepLoop(ctx context.Context, store *moderation.MemSuspensionStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Sweep(now); n > 0 {
				log.Printf("[moderator] swept %d expired suspensions", n)
			}
			metrics.SuspendedUsers.Set(float64(store.Len()))
		}
	}
}
