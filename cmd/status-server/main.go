// Package main is the entry point for the world status server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/worldstatus/internal/engine"
	"github.com/MRamiBalles/worldstatus/internal/events"
	"github.com/MRamiBalles/worldstatus/internal/infra/cache"
	"github.com/MRamiBalles/worldstatus/internal/infra/storage"
	"github.com/MRamiBalles/worldstatus/internal/network"
	"github.com/MRamiBalles/worldstatus/internal/platform/config"
	"github.com/MRamiBalles/worldstatus/internal/platform/logger"
	"github.com/MRamiBalles/worldstatus/internal/platform/metrics"
	"github.com/MRamiBalles/worldstatus/internal/platform/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		config.Exitf("logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error("server exited with error", zap.Error(err))
		_ = appLogger.Sync()
		os.Exit(1)
	}
	appLogger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, appLogger *logger.Logger) error {
	shutdownTracing, err := otel.Setup(ctx, cfg.ServiceName, cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		appLogger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	appLogger.Info("initializing sqlite database", zap.String("path", cfg.DBPath))
	db, err := storage.InitSQLite(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	statusRepo := storage.NewSQLiteStatusRepository(db)
	eventRepo := storage.NewSQLiteEventRepository(db)

	eventLog := events.NewEventLog(eventRepo, appLogger)
	defer eventLog.Flush()

	m := metrics.Get()

	hub := network.NewHub(nil, cfg.SendBuffer, appLogger, m)
	aiLink := network.NewAILink(cfg.AIEndpoint, nil, appLogger, m)

	eng := engine.NewEngine(engine.Options{
		Store:   statusRepo,
		Sink:    hub,
		AI:      aiLink,
		Events:  eventLog,
		Metrics: m,
		Logger:  appLogger,
	})
	aiLink.SetRequester(eng)
	hub.SetRoom(network.NearbyPlayers(eng, network.DefaultViewRange))
	hub.OnConnect(func(roleID uint32) {
		if set, ok := eng.Statuses(roleID); ok {
			set.BroadcastAll()
		}
	})

	ticker := engine.NewTicker(eng, cfg.TickPeriod, cfg.TickWorkers, appLogger)
	snapshots := cache.NewSnapshotCache(cfg.SnapshotSize, cfg.SnapshotTTL)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/ai", aiLink.ServeAI)
	network.NewAdminBridge(eng, snapshots, hub, aiLink, appLogger).RegisterRoutes(mux)
	network.NewHistoryHandler(eventLog, storage.NewReconstructor(eventRepo), appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", m.Handler())
	mux.HandleFunc("/metrics/prometheus", m.PrometheusHandler())

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error { return ticker.Start(gctx) })
	g.Go(func() error { return aiLink.Run(gctx) })
	g.Go(func() error {
		appLogger.Info("http api and websocket server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
