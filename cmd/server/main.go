package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ndewijer/exchange-rate-oracle/internal/admission"
	"github.com/ndewijer/exchange-rate-oracle/internal/api"
	"github.com/ndewijer/exchange-rate-oracle/internal/cache"
	"github.com/ndewijer/exchange-rate-oracle/internal/config"
	"github.com/ndewijer/exchange-rate-oracle/internal/database"
	"github.com/ndewijer/exchange-rate-oracle/internal/exchanges"
	"github.com/ndewijer/exchange-rate-oracle/internal/forex"
	"github.com/ndewijer/exchange-rate-oracle/internal/logging"
	"github.com/ndewijer/exchange-rate-oracle/internal/metrics"
	"github.com/ndewijer/exchange-rate-oracle/internal/repository"
	"github.com/ndewijer/exchange-rate-oracle/internal/requestlog"
	"github.com/ndewijer/exchange-rate-oracle/internal/service"
	"github.com/ndewijer/exchange-rate-oracle/internal/state"
	"github.com/ndewijer/exchange-rate-oracle/internal/transport"
	"github.com/ndewijer/exchange-rate-oracle/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // nothing useful to do on exit
	zap.ReplaceGlobals(logger)

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	schema, err := database.Migrate(context.Background(), db)
	if err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	logger.Info("connected to database", zap.String("path", cfg.Database.Path), zap.Int64("schema_version", schema))

	exchangeList, err := exchanges.ByNames(cfg.Sources.Exchanges)
	if err != nil {
		logger.Fatal("invalid exchange configuration", zap.Error(err))
	}
	forexSources, err := forex.ByNames(cfg.Sources.Forex)
	if err != nil {
		logger.Fatal("invalid forex configuration", zap.Error(err))
	}

	// Shared state
	o := cfg.Oracle
	st := state.New(
		cache.New(o.CacheSoftMax, o.CacheHardMax, o.CacheRetention),
		forex.NewCollector(o.ForexCollectorDays),
		forex.NewStore(o.ForexStoreDays),
		admission.NewController(o.OutboundSoftCap, cfg.Sources.Privileged),
		requestlog.New(o.RequestLogCapacity),
	)

	m := metrics.New()
	m.RegisterGauges(gauges(st))

	client := transport.NewClient(logger, transport.Options{
		Timeout:      o.HTTPTimeout,
		PerHostRate:  o.PerHostRate,
		PerHostBurst: o.PerHostBurst,
		UserAgent:    o.UserAgent,
		Recorder:     m,
	})

	// Create services
	systemService := service.NewSystemService(db, st)
	rateService := service.NewRateService(st, exchangeList, client, m, logger)
	logService := service.NewLogService(st.Log)
	forexService := service.NewForexService(st, forexSources, client, m, logger)
	snapshotService := service.NewSnapshotService(
		db,
		st,
		repository.NewCacheRepository(db),
		repository.NewForexRepository(db),
		repository.NewRequestLogRepository(db),
		logger,
	)

	if _, err := snapshotService.Restore(context.Background()); err != nil {
		logger.Warn("starting without snapshot", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if err := forexService.Start(ctx, o.ForexSchedule); err != nil {
		logger.Fatal("failed to schedule forex collection", zap.Error(err))
	}

	// Create router
	router := api.NewRouter(api.Services{
		System: systemService,
		Rates:  rateService,
		Logs:   logService,
		Forex:  forexService,
	}, m, logger, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("version", version.Version),
			zap.Int("exchanges", len(exchangeList)),
			zap.Int("forex_sources", len(forexSources)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	stop()
	forexService.Stop()

	if _, err := snapshotService.Save(shutdownCtx); err != nil {
		logger.Error("failed to save snapshot", zap.Error(err))
	}

	logger.Info("server exited")
}

// gauges samples the shared state on every scrape.
func gauges(st *state.State) metrics.Gauges {
	return metrics.Gauges{
		CacheSize: func() float64 {
			var n int
			st.WithCache(func(c *cache.RateCache) { n = c.Len() })
			return float64(n)
		},
		OutboundInFlight: func() float64 { return float64(st.Admission.Outbound()) },
		FetchesInFlight:  func() float64 { return float64(st.Admission.InFlight()) },
		StoreBytes: func() float64 {
			var n int
			st.WithStore(func(s *forex.Store) { n = s.AllocatedBytes() })
			return float64(n)
		},
		StoreDays: func() float64 {
			var n int
			st.WithStore(func(s *forex.Store) { n = len(s.Days()) })
			return float64(n)
		},
		RequestLogSize: func() float64 { return float64(st.Log.Len()) },
	}
}
