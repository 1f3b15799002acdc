package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vendor-tracking/internal/shared/cache"
	"vendor-tracking/internal/shared/config"
	"vendor-tracking/internal/shared/db"
	"vendor-tracking/internal/shared/health"
	"vendor-tracking/internal/shared/mq"
	"vendor-tracking/internal/shared/util"
	"vendor-tracking/internal/tracking/api"
	"vendor-tracking/internal/tracking/app"
	"vendor-tracking/internal/tracking/consumer"
	"vendor-tracking/internal/tracking/domain"
	"vendor-tracking/internal/tracking/hub"
	"vendor-tracking/internal/tracking/repo"
	"vendor-tracking/internal/tracking/sink"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	log := util.New()
	log.Info("TrackingService", "Starting service initialization...")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Config", "Failed to load configuration", err)
	}
	log.OK("Config", "Configuration loaded successfully")
	if cfg.Auth.JWTSecret == "" {
		log.Warn("Config", "auth.jwt_secret is empty, token checks are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.ConnectToDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Database", "Failed to connect to database", err)
	}
	defer database.Close()
	log.OK("Database", "Connected successfully")

	journal := repo.NewJournal(database)
	if err := journal.EnsureSchema(ctx); err != nil {
		log.Fatal("Database", "Failed to prepare schema", err)
	}

	rmqConn, rmqCh, err := mq.ConnectToRMQ(ctx, &cfg.RabbitMQ, 5)
	if err != nil {
		log.Fatal("RabbitMQ", "Failed to connect to RabbitMQ", err)
	}
	defer rmqConn.Close()
	defer rmqCh.Close()

	if err := mq.DeclareTopology(rmqCh); err != nil {
		log.Fatal("RabbitMQ", "Failed to declare exchanges", err)
	}
	if err := consumer.Setup(rmqCh); err != nil {
		log.Fatal("RabbitMQ", "Failed to declare assignment queue", err)
	}
	pubCh, err := rmqConn.Channel()
	if err != nil {
		log.Fatal("RabbitMQ", "Failed to open publish channel", err)
	}
	defer pubCh.Close()
	log.OK("RabbitMQ", "Connected successfully")

	checks := []health.Check{health.Postgres(database), health.RabbitMQ(rmqConn)}

	// the snapshot cache is optional; it serves reads this instance does not track
	var snapshots domain.SnapshotCache
	rdb, err := cache.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn("Redis", fmt.Sprintf("running without snapshot cache: %v", err))
	} else {
		defer rdb.Close()
		snapshots = repo.NewSnapshotCache(rdb, cfg.Redis.SnapshotTTL)
		checks = append(checks, health.Redis(rdb))
		log.OK("Redis", "Connected successfully")
	}

	eventSink := sink.New(journal, snapshots, mq.NewPublisher(pubCh), cfg.Tracking.SinkBuffer, log)
	eventSink.Start(context.Background())

	fan := &app.Broadcaster{}
	tracker := app.NewTracker(cfg.Tracking, fan, log)

	open, err := journal.ListOpen(ctx)
	if err != nil {
		log.Fatal("Tracker", "Failed to restore open assignments", err)
	}
	for _, snap := range open {
		if err := tracker.Restore(snap); err != nil {
			log.Error("Tracker", "restore "+snap.Assignment.ID, err)
		}
	}
	log.OK("Tracker", fmt.Sprintf("Restored %d open assignments", len(open)))

	realtime := hub.New(tracker, hub.NewRegistry(), log, hub.Options{
		SendBuffer:   cfg.Tracking.SendBuffer,
		PingInterval: api.PingPeriod,
	})
	fan.Add(eventSink)
	fan.Add(realtime)

	if err := consumer.NewAssignmentConsumer(tracker, rmqCh, log).Start(ctx); err != nil {
		log.Fatal("RabbitMQ", "Failed to start assignment consumer", err)
	}

	handler := api.NewHandler(tracker, realtime, snapshots, log, api.Options{
		JWTSecret:   cfg.Auth.JWTSecret,
		AuthTimeout: cfg.Tracking.WSAuthTimeout,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           handler.RegisterRoutes(checks...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.OK("HTTP", "tracking-service running on :"+cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", "server failed", err)
		}
	}()

	<-ctx.Done()
	log.Info("TrackingService", "shutting down tracking-service...")

	realtime.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP", "server shutdown failed", err)
	}

	eventSink.Stop()
	log.OK("TrackingService", "tracking-service stopped gracefully")
}
