package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"schoolportal/internal/cache"
	"schoolportal/internal/catalog"
	"schoolportal/internal/chatbot"
	"schoolportal/internal/config"
	"schoolportal/internal/crypto"
	"schoolportal/internal/db"
	"schoolportal/internal/device"
	httpserver "schoolportal/internal/http"
	"schoolportal/internal/jobs"
	"schoolportal/internal/order"
	"schoolportal/internal/payment"
	"schoolportal/internal/repository"
	"schoolportal/internal/session"
	"schoolportal/internal/timetable"
	"schoolportal/internal/voucher"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStartup {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	if cfg.OwnerAdminPassword != "" {
		hash, err := crypto.HashPassword(cfg.OwnerAdminPassword, cfg.BcryptCost)
		if err != nil {
			return err
		}
		if err := store.EnsureOwnerAdmin(ctx, cfg.OwnerAdminID, hash); err != nil {
			return err
		}
		log.Info("owner admin ensured", zap.String("account", cfg.OwnerAdminID))
	}

	appCache := newCache(ctx, cfg, log)

	sessions := session.NewManager(store, cfg.SessionTTL, cfg.RememberSessionTTL)
	devices := device.NewEnforcer(store, cfg.DeviceRebindAfter)
	ledger := order.NewLedger(store)
	payments := payment.NewEngine(store, store, cfg.AmountTolerance, log)
	cat := catalog.NewService(store, appCache, cfg.CatalogCacheTTL)
	vouchers := voucher.NewEngine(store, cat)
	parser := timetable.NewParser(cfg.TimetableParser, cfg.TimetableTimeout)
	chat := chatbot.NewClient(cfg.ChatbotURL, cfg.ChatbotAPIKey, cfg.ChatbotTimeout, appCache, cfg.ChatReplyCacheTTL)

	jobs.StartSessionSweep(ctx, log, store, cfg.SessionSweepInterval)

	server := httpserver.NewServer(cfg, store, sessions, devices, ledger, payments, vouchers, cat, parser, chat, log)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func newCache(ctx context.Context, cfg config.Config, log *zap.Logger) cache.Cache {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err == nil {
			log.Info("using redis cache", zap.String("addr", cfg.RedisAddr))
			return cache.NewRedis(client)
		}
		log.Warn("redis unreachable, falling back to in-memory cache", zap.String("addr", cfg.RedisAddr))
	}
	memory := cache.NewMemory()
	memory.StartSweeper(ctx, cfg.CacheSweepInterval)
	return memory
}
