package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nikepigwin/officialmainnetnplottery/internal/config"
	gatewayHttp "github.com/nikepigwin/officialmainnetnplottery/internal/modules/gateway/adapter/http"
	gatewayLocal "github.com/nikepigwin/officialmainnetnplottery/internal/modules/gateway/adapter/local"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/gateway/ws"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/ledger"
	lotteryHttp "github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/adapter/http"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/domain"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/machine"
	lotteryDB "github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/repository/db"
	lotteryMemory "github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/repository/memory"
	lotteryRedis "github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/repository/redis"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/selector"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/lottery/usecase"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/metrics"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/middleware"
)

const logFile = "logs/lottery/server.log"

func main() {
	pprofPort := flag.String("pprof-port", "", "Port to run pprof server on (e.g., 6060)")
	background := flag.Bool("d", false, "Run in background mode (disable console logging)")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.LoadLotteryConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitWithFile(logFile, cfg.Server.LogLevel, "json", !*background)
	defer logger.Flush()

	if *pprofPort != "" {
		go func() {
			addr := "localhost:" + *pprofPort
			logger.InfoGlobal().Str("addr", addr).Msg("📈 Starting pprof server")
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.ErrorGlobal().Err(err).Msg("Failed to start pprof server")
			}
		}()
	}

	fmt.Println("🚀 Starting Nikepig Lottery... Logs are being written to " + logFile + " (rotating)")
	logger.InfoGlobal().
		Str("history_store", cfg.HistoryStore).
		Str("state_store", cfg.StateStore).
		Str("ledger_mode", cfg.Ledger.Mode).
		Msg("🎰 Starting Nikepig Lottery...")

	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	// 2. Initialize Infrastructure
	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.FatalGlobal().Err(err).Str("addr", cfg.Redis.Addr()).Msg("Failed to connect to redis")
		}
		logger.InfoGlobal().Msg("✅ Redis connected")
	}

	history, closeHistory := buildHistory(rootCtx, cfg, rdb)
	defer closeHistory()

	var stateStore domain.StateRepository
	if cfg.StateStore == "redis" {
		stateStore = lotteryRedis.NewStateRepository(rdb, cfg.Redis.Prefix)
		logger.InfoGlobal().Msg("  ✅ Round snapshots: Redis")
	}

	ldg := buildLedger(cfg)

	// 3. Initialize Modules
	sel, err := selector.New(selector.Config{
		CommissionBps: cfg.Payout.CommissionBps,
		PrizeSplitBps: cfg.Payout.PrizeSplitBps,
	})
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Invalid payout configuration")
	}

	stateMachine, err := machine.NewStateMachine(machine.Config{
		RoundDuration:       cfg.Round.Duration,
		MinimumParticipants: cfg.Round.MinimumParticipants,
		TicketPrice:         domain.Amount(cfg.Round.TicketPriceLovelace),
		TickInterval:        cfg.Round.TickInterval,
		SettleDelay:         cfg.Round.SettleDelay,
		StaleAfter:          cfg.Round.StaleAfter,
		RecentWindow:        cfg.Round.RecentWindow,
		RecentCapacity:      cfg.Round.RecentCapacity,
		DisburseTimeout:     cfg.Round.DisburseTimeout,
		PoolWallet:          cfg.Payout.PoolWallet,
		Wallets:             selector.Wallets{Team: cfg.Payout.TeamWallet, Burn: cfg.Payout.BurnWallet},
		Clock:               clockwork.NewRealClock(),
	}, sel, ldg, history, stateStore)
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to create round driver")
	}
	if err := stateMachine.Restore(rootCtx); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to restore round state")
	}

	// Gateway Module
	wsManager, err := ws.NewManager(ws.Config{
		PingInterval:   cfg.WebSocket.PingInterval,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.WebSocket.SendBuffer,
	}, cfg.Server.NodeID)
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to create websocket manager")
	}
	wsCtx, stopWS := context.WithCancel(rootCtx)
	go wsManager.Run(wsCtx)

	lotteryUC := usecase.NewLotteryUseCase(stateMachine, history, ldg, gatewayLocal.NewBroadcaster(wsManager), cfg.Payout.PoolWallet)
	logger.InfoGlobal().Msg("✅ Lottery module initialized")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stateMachine.Start(rootCtx)
	}()

	// 4. Setup HTTP Server
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go limiter.RunCleanup(rootCtx)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(logger.GinMiddleware("/health", "/metrics"))
	router.Use(metrics.GinMiddleware())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	gatewayHttp.NewHandler(wsManager).RegisterRoutes(router)

	api := router.Group("", middleware.RateLimit(limiter))
	lotteryHttp.NewHandler(lotteryUC, cfg.Admin.Key).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.InfoGlobal().
		Str("http_port", cfg.Server.HTTPPort).
		Str("ws_url", fmt.Sprintf("ws://localhost:%s/ws", cfg.Server.HTTPPort)).
		Str("api_url", fmt.Sprintf("http://localhost:%s/api/lottery", cfg.Server.HTTPPort)).
		Msg("🚀 Nikepig Lottery running")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalGlobal().Err(err).Msg("HTTP server failed")
		}
	}()

	// 5. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoGlobal().Msg("🛑 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorGlobal().Err(err).Msg("HTTP server forced to shutdown")
	}

	// A disbursement in flight is allowed to finish; it runs on its own timeout
	logger.InfoGlobal().Msg("⏳ Waiting for the round pass in flight...")
	stateMachine.Stop()
	wg.Wait()

	logger.InfoGlobal().Msg("🔌 Closing all WebSocket connections...")
	stopWS()
	wsManager.Shutdown()

	logger.InfoGlobal().Msg("👋 Server exited properly")
}

func buildHistory(ctx context.Context, cfg *config.LotteryConfig, rdb *redis.Client) (domain.HistoryRepository, func()) {
	retention := cfg.Round.HistoryRetention

	switch cfg.HistoryStore {
	case "db":
		db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
			Logger: logger.NewGormLogger(),
		})
		if err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to connect to database")
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to get database instance")
		}
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
		if err := sqlDB.PingContext(ctx); err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to ping database")
		}

		repo, err := lotteryDB.NewHistoryRepository(db, retention, cfg.Server.NodeID)
		if err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to create history repository")
		}
		if err := repo.AutoMigrate(ctx); err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to migrate history tables")
		}
		logger.InfoGlobal().Msg("  ✅ Winner history: Postgres")
		return repo, func() { _ = sqlDB.Close() }

	case "redis":
		logger.InfoGlobal().Msg("  ✅ Winner history: Redis")
		return lotteryRedis.NewHistoryRepository(rdb, cfg.Redis.Prefix, retention), func() {}

	default:
		logger.InfoGlobal().Msg("  ✅ Winner history: Memory")
		return lotteryMemory.NewHistoryRepository(retention), func() {}
	}
}

func buildLedger(cfg *config.LotteryConfig) domain.Ledger {
	if cfg.Ledger.Mode == "http" {
		client, err := ledger.NewClient(ledger.ClientConfig{
			BaseURL:     cfg.Ledger.BaseURL,
			APIKey:      cfg.Ledger.APIKey,
			Timeout:     cfg.Ledger.Timeout,
			MaxAttempts: cfg.Ledger.BalanceMaxAttempts,
		})
		if err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to create ledger client")
		}
		logger.InfoGlobal().Str("url", cfg.Ledger.BaseURL).Msg("✅ Ledger: sidecar")
		return client
	}

	logger.WarnGlobal().Msg("⚠️ Ledger: in-memory mock, no funds move on chain")
	return ledger.NewMockService(cfg.Payout.PoolWallet, domain.Amount(cfg.Ledger.MockBalanceLovelace()))
}
